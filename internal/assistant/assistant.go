// Package assistant writes welcome messages and runs the store chatbot on a generative model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Message roles, matching the generative API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	systemInstruction = `Anda adalah chatbot asisten virtual untuk "Martabak Juara". Anda ramah, membantu, dan sedikit humoris. Jawab pertanyaan seputar menu, promo, atau cara menjadi member. Jangan menjawab pertanyaan di luar topik martabak.`
	welcomePrompt     = `Buat pesan selamat datang yang singkat, ramah, dan sedikit ceria untuk anggota baru bernama "%s" yang baru saja bergabung dengan "Klub Pecinta Martabak Juara". Sapa dengan namanya. Jangan lebih dari 2 kalimat.`
	welcomeFallback   = "Selamat datang di Klub Pecinta Martabak, %s! Kami senang Anda bergabung."

	// Greeting opens every chat session.
	Greeting = "Halo! Ada yang bisa saya bantu seputar Martabak Juara?"
	// ChatFallback replaces a reply the model failed to produce.
	ChatFallback = "Maaf, terjadi kesalahan. Coba lagi nanti."

	// maxHistory caps the messages replayed to the model per turn.
	maxHistory = 40
	// maxMessageLength caps one user message, in bytes.
	maxMessageLength = 2000
)

var (
	// ErrUnavailable is returned when no model is configured.
	ErrUnavailable = errors.New("assistant unavailable")
	// ErrEmptyMessage is returned for a blank chat message.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong is returned for an oversized chat message.
	ErrMessageTooLong = errors.New("message is too long")
)

// Message is one chat turn.
type Message struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Generator produces text from a conversation.
type Generator interface {
	Generate(ctx context.Context, system string, history []Message) (string, error)
	Stream(ctx context.Context, system string, history []Message, onChunk func(string) error) error
}

// Service owns chat sessions and the welcome message.
type Service struct {
	gen   Generator
	store SessionStore
	now   func() time.Time
}

// NewService constructs a Service. A nil generator makes every call use its fallback text.
func NewService(gen Generator, store SessionStore) *Service {
	if store == nil {
		store = NewMemoryStore(0)
	}
	return &Service{gen: gen, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Welcome returns a greeting for a new member. It never fails.
func (s *Service) Welcome(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	fallback := fmt.Sprintf(welcomeFallback, name)
	if s.gen == nil {
		return fallback
	}
	text, err := s.gen.Generate(ctx, "", []Message{{Role: RoleUser, Text: fmt.Sprintf(welcomePrompt, name)}})
	if err != nil {
		log.WithError(err).Warn("assistant: welcome message failed, using fallback")
		return fallback
	}
	if text = strings.TrimSpace(text); text == "" {
		log.Warn("assistant: empty welcome message, using fallback")
		return fallback
	}
	return text
}

// StartChat opens a session seeded with the greeting.
func (s *Service) StartChat(ctx context.Context) (string, Message, error) {
	id := uuid.NewString()
	greeting := Message{Role: RoleModel, Text: Greeting, At: s.now()}
	if err := s.store.Create(ctx, id, []Message{greeting}); err != nil {
		return "", Message{}, fmt.Errorf("assistant: start chat: %w", err)
	}
	return id, greeting, nil
}

// History returns the messages of a session.
func (s *Service) History(ctx context.Context, sessionID string) ([]Message, error) {
	return s.store.Load(ctx, sessionID)
}

// Send streams the model's reply to text through onChunk and returns the full reply.
// Model failures are replaced by ChatFallback. Errors cover unknown sessions, invalid input
// and a failed onChunk.
func (s *Service) Send(ctx context.Context, sessionID, text string, onChunk func(string) error) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if len(text) > maxMessageLength {
		return "", ErrMessageTooLong
	}
	history, errLoad := s.store.Load(ctx, sessionID)
	if errLoad != nil {
		return "", errLoad
	}

	userMsg := Message{Role: RoleUser, Text: text, At: s.now()}
	turn := promptHistory(append(history, userMsg))

	if s.gen == nil {
		return ChatFallback, emit(onChunk, ChatFallback)
	}

	var (
		reply   strings.Builder
		emitted bool
		errSink error
	)
	errStream := s.gen.Stream(ctx, systemInstruction, turn, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		reply.WriteString(chunk)
		emitted = true
		if errChunk := emit(onChunk, chunk); errChunk != nil {
			errSink = errChunk
			return errChunk
		}
		return nil
	})
	if errSink != nil {
		return "", errSink
	}
	if errStream != nil || strings.TrimSpace(reply.String()) == "" {
		if errStream != nil {
			log.WithError(errStream).WithField("session_id", sessionID).Warn("assistant: chat reply failed, using fallback")
		}
		if emitted {
			return reply.String(), emit(onChunk, "\n"+ChatFallback)
		}
		return ChatFallback, emit(onChunk, ChatFallback)
	}

	modelMsg := Message{Role: RoleModel, Text: reply.String(), At: s.now()}
	if errAppend := s.store.Append(ctx, sessionID, userMsg, modelMsg); errAppend != nil {
		log.WithError(errAppend).WithField("session_id", sessionID).Warn("assistant: save chat history failed")
	}
	return modelMsg.Text, nil
}

func emit(onChunk func(string) error, chunk string) error {
	if onChunk == nil {
		return nil
	}
	return onChunk(chunk)
}

// promptHistory trims to the latest turns and drops leading model messages.
func promptHistory(history []Message) []Message {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for len(history) > 0 && history[0].Role != RoleUser {
		history = history[1:]
	}
	return history
}
