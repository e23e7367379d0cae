package auth

import (
	"sync"
	"time"
)

// EventKind names an auth state change.
type EventKind string

// Auth state changes.
const (
	EventRegistered      EventKind = "registered"
	EventSignedIn        EventKind = "signed_in"
	EventSignedOut       EventKind = "signed_out"
	EventSignInFailed    EventKind = "sign_in_failed"
	EventPasswordChanged EventKind = "password_changed"
)

// Event is delivered to every subscriber when a session changes.
type Event struct {
	Kind    EventKind
	Session Session
	At      time.Time
	Reason  string
}

// Notifier fans auth events out to subscribers.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

// NewNotifier constructs an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns the function that removes it.
func (n *Notifier) Subscribe(fn func(Event)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to the current subscribers.
func (n *Notifier) Publish(ev Event) {
	if n == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	n.mu.RLock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Tracker keeps the latest session per subject from the event stream.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]Session
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]Session)}
}

// Handle applies ev. Pass it to Notifier.Subscribe.
func (t *Tracker) Handle(ev Event) {
	key := string(ev.Session.Role) + ":" + ev.Session.Subject
	t.mu.Lock()
	defer t.mu.Unlock()
	switch ev.Kind {
	case EventRegistered, EventSignedIn:
		t.active[key] = ev.Session
	case EventSignedOut, EventPasswordChanged:
		delete(t.active, key)
	}
}

// Active returns how many sessions are signed in for role.
func (t *Tracker) Active(role Role) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, s := range t.active {
		if s.Role == role {
			count++
		}
	}
	return count
}
