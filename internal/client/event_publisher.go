package client

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-relocation-cases/internal/platform/middleware"
)

// EventPublisher publishes relocation case events to NATS for consumption by
// the notifications service.
//
// Subject convention: <prefix>.<event_type>, e.g.
// notifications.relocation.case_submitted.
//
// All publish operations are non-fatal: errors are logged but never propagated
// to the caller, so a notification failure never interrupts a case operation.
type EventPublisher struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

// CaseEvent is the JSON schema published to NATS.
type CaseEvent struct {
	EventType    string                 `json:"event_type"`
	OrgID        string                 `json:"org_id"`
	ActorID      string                 `json:"actor_id"`
	Recipients   []string               `json:"recipients"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	IsActionable bool                   `json:"is_actionable,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// ConnectNATS dials the NATS server with reconnects enabled.
func ConnectNATS(url, name string, log zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
}

// NewEventPublisher creates a publisher backed by the given NATS connection.
// A nil connection yields a publisher that drops every event.
func NewEventPublisher(conn *nats.Conn, subjectPrefix string, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{conn: conn, prefix: subjectPrefix, log: log}
}

// PublishCaseEvent publishes a case event. Events without recipients are
// skipped.
func (p *EventPublisher) PublishCaseEvent(ctx context.Context, eventType, caseID, orgID, actorID string, recipients []string, payload map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	if len(recipients) == 0 {
		return
	}

	event := &CaseEvent{
		EventType:    eventType,
		OrgID:        orgID,
		ActorID:      actorID,
		Recipients:   recipients,
		ResourceType: "relocation_case",
		ResourceID:   caseID,
		IsActionable: actionable(eventType),
		Severity:     "info",
		Category:     "relocation",
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, eventType)
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if id := middleware.GetRequestID(ctx); id != "" {
		msg.Header.Set(middleware.RequestIDHeader, id)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("case_id", caseID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("case_id", caseID).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}

func actionable(eventType string) bool {
	switch eventType {
	case "case_assigned", "case_submitted", "case_changes_requested", "exception_requested":
		return true
	}
	return false
}
