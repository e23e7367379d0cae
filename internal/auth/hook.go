package auth

import (
	log "github.com/sirupsen/logrus"
)

// LogHook logs auth events with a severity derived from the event kind.
func LogHook(ev Event) {
	entry := log.WithFields(log.Fields{
		"kind":    string(ev.Kind),
		"role":    string(ev.Session.Role),
		"subject": ev.Session.Subject,
	})

	switch ev.Kind {
	case EventSignInFailed:
		if ev.Reason != "" {
			entry.Warnf("sign-in rejected: %s", ev.Reason)
			return
		}
		entry.Warn("sign-in rejected")
	case EventRegistered:
		entry.Info("account registered")
	case EventPasswordChanged:
		entry.Info("password changed")
	default:
		entry.Debug("session changed")
	}
}
