package assistant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply   []string
	err     error
	prompts [][]Message
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, history []Message) (string, error) {
	f.prompts = append(f.prompts, history)
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.reply, ""), nil
}

func (f *fakeGenerator) Stream(_ context.Context, _ string, history []Message, onChunk func(string) error) error {
	f.prompts = append(f.prompts, history)
	for _, chunk := range f.reply {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return f.err
}

func TestWelcome(t *testing.T) {
	t.Run("uses model text", func(t *testing.T) {
		svc := NewService(&fakeGenerator{reply: []string{"  Halo Sari!  "}}, nil)
		assert.Equal(t, "Halo Sari!", svc.Welcome(context.Background(), "Sari"))
	})
	t.Run("falls back on error", func(t *testing.T) {
		svc := NewService(&fakeGenerator{err: errors.New("quota")}, nil)
		assert.Equal(t, "Selamat datang di Klub Pecinta Martabak, Sari! Kami senang Anda bergabung.", svc.Welcome(context.Background(), "Sari"))
	})
	t.Run("falls back on empty text", func(t *testing.T) {
		svc := NewService(&fakeGenerator{reply: []string{"   "}}, nil)
		assert.Contains(t, svc.Welcome(context.Background(), "Budi"), "Budi")
	})
	t.Run("falls back without model", func(t *testing.T) {
		svc := NewService(nil, nil)
		assert.Contains(t, svc.Welcome(context.Background(), "Citra"), "Citra")
	})
}

func TestChatStreamsAndKeepsHistory(t *testing.T) {
	gen := &fakeGenerator{reply: []string{"Martabak ", "keju ", "enak!"}}
	svc := NewService(gen, NewMemoryStore(time.Hour))
	ctx := context.Background()

	id, greeting, err := svc.StartChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, Greeting, greeting.Text)

	var chunks []string
	reply, err := svc.Send(ctx, id, "Menu favorit?", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Martabak keju enak!", reply)
	assert.Equal(t, []string{"Martabak ", "keju ", "enak!"}, chunks)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, RoleUser, gen.prompts[0][0].Role, "greeting is not replayed to the model")

	_, err = svc.Send(ctx, id, "Ada promo?", nil)
	require.NoError(t, err)
	assert.Len(t, gen.prompts[1], 3, "second turn replays the first exchange")

	history, err := svc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestChatFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("unavailable")}
	svc := NewService(gen, nil)
	ctx := context.Background()
	id, _, err := svc.StartChat(ctx)
	require.NoError(t, err)

	var chunks []string
	reply, err := svc.Send(ctx, id, "Halo", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ChatFallback, reply)
	assert.Equal(t, []string{ChatFallback}, chunks)

	history, err := svc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 1, "failed turns are not stored")
}

func TestChatValidation(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: []string{"ok"}}, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "missing", "Halo", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id, _, err := svc.StartChat(ctx)
	require.NoError(t, err)
	_, err = svc.Send(ctx, id, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.Send(ctx, id, strings.Repeat("a", maxMessageLength+1), nil)
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(context.Background(), "s1", []Message{{Role: RoleModel, Text: Greeting}}))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.Append(context.Background(), "s1", Message{Role: RoleUser, Text: "hi"}))

	now = now.Add(50 * time.Second)
	msgs, err := store.Load(context.Background(), "s1")
	require.NoError(t, err, "append extends the session")
	assert.Len(t, msgs, 2)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreEvictsBeyondLimit(t *testing.T) {
	store := NewMemoryStore(time.Hour).WithLimit(2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1", nil))
	now = now.Add(time.Minute)
	require.NoError(t, store.Create(ctx, "s2", nil))
	now = now.Add(time.Minute)
	require.NoError(t, store.Append(ctx, "s1", Message{Role: RoleUser, Text: "masih di sini"}))

	now = now.Add(time.Minute)
	require.NoError(t, store.Create(ctx, "s3", nil))

	_, err := store.Load(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound, "least recently active session is evicted")
	msgs, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	_, err = store.Load(ctx, "s3")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, store.Create(ctx, fmt.Sprintf("flood-%d", i), nil))
	}
	store.mu.Lock()
	held := len(store.items)
	store.mu.Unlock()
	assert.Equal(t, 2, held)
}

func TestPromptHistoryCap(t *testing.T) {
	var history []Message
	for i := 0; i < maxHistory+5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		history = append(history, Message{Role: role, Text: "x"})
	}
	trimmed := promptHistory(history)
	assert.LessOrEqual(t, len(trimmed), maxHistory)
	assert.Equal(t, RoleUser, trimmed[0].Role)
}

func TestRedisStore(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("LOYALTY_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("LOYALTY_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "loyalty-test", time.Minute)
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Append(ctx, "missing", Message{Role: RoleUser, Text: "x"}), ErrSessionNotFound)

	require.NoError(t, store.Create(ctx, "s1", []Message{{Role: RoleModel, Text: Greeting}}))
	require.NoError(t, store.Append(ctx, "s1", Message{Role: RoleUser, Text: "hi"}, Message{Role: RoleModel, Text: "halo"}))
	msgs, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "halo", msgs[2].Text)
}
