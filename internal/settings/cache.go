package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// cache is the process-wide view of the settings table.
type cache struct {
	refreshedAt time.Time
	values      map[string]json.RawMessage
}

var current atomic.Pointer[cache]

// Publish swaps in a new view of the settings table. Blank keys are dropped
// and every value is copied, so callers may reuse their map.
func Publish(refreshedAt time.Time, values map[string]json.RawMessage) {
	next := &cache{refreshedAt: refreshedAt.UTC(), values: make(map[string]json.RawMessage, len(values))}
	for key, raw := range values {
		if key = strings.TrimSpace(key); key != "" {
			next.values[key] = cloneRaw(raw)
		}
	}
	current.Store(next)
}

// LastRefreshed reports the newest updated_at seen by the last Publish.
func LastRefreshed() time.Time {
	if c := current.Load(); c != nil {
		return c.refreshedAt
	}
	return time.Time{}
}

// lookup returns a private copy of the stored JSON for key.
func lookup(key string) (json.RawMessage, bool) {
	c := current.Load()
	if c == nil {
		return nil, false
	}
	raw, ok := c.values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return cloneRaw(raw), true
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
