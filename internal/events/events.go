// Package events publishes domain events after a ledger or inventory change commits.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Event subjects, relative to the configured prefix.
const (
	SubjectPointsAdded         = "points.added"
	SubjectRedemptionRequested = "redemption.requested"
	SubjectRedemptionApproved  = "redemption.approved"
	SubjectRedemptionRejected  = "redemption.rejected"
	SubjectInventoryUsage      = "inventory.usage.recorded"
)

// Publisher delivers events. Implementations log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) {}

// envelope is the JSON body sent on the wire.
type envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NATSPublisher publishes JSON events to a NATS server.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNATS dials url and returns a publisher. An empty url yields (nil, nil).
func ConnectNATS(url, prefix string) (*NATSPublisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("loyaltyd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, errDisconnect error) {
			if errDisconnect != nil {
				log.WithError(errDisconnect).Warn("events: nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc, prefix: strings.Trim(strings.TrimSpace(prefix), ".")}, nil
}

// Subject returns the fully qualified subject for name.
func (p *NATSPublisher) Subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) {
	full := p.Subject(subject)
	data, errMarshal := json.Marshal(envelope{Subject: full, OccurredAt: time.Now().UTC(), Data: payload})
	if errMarshal != nil {
		log.WithError(errMarshal).WithField("subject", full).Error("events: marshal failed")
		return
	}
	if errPublish := p.conn.Publish(full, data); errPublish != nil {
		log.WithError(errPublish).WithField("subject", full).Warn("events: publish failed")
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if errDrain := p.conn.Drain(); errDrain != nil {
		p.conn.Close()
	}
}

// OrNop returns p, or Nop when p is nil.
func OrNop(p Publisher) Publisher {
	if p == nil {
		return Nop{}
	}
	return p
}
