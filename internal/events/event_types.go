package events

import (
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketAutoClosed EventType = "ticket_auto_closed"
	EventTicketEscalated  EventType = "ticket_escalated"
	EventTicketReplyAdded EventType = "ticket_reply_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.AuditActor `json:"type"`
	ID   *string           `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string          `json:"title"`
	Category domain.Category `json:"category"`
}

// TriageOutcomePayload accompanies auto-close and escalation events.
type TriageOutcomePayload struct {
	TraceID      string  `json:"trace_id"`
	SuggestionID string  `json:"suggestion_id"`
	Action       string  `json:"action"`
	Confidence   float64 `json:"confidence"`
}

// TicketReplyAddedPayload payload.
type TicketReplyAddedPayload struct {
	ReplyID     string                 `json:"reply_id"`
	AuthorType  domain.ReplyAuthorType `json:"author_type"`
	AuthorID    *string                `json:"author_id,omitempty"`
	BodyPreview string                 `json:"body_preview"`
	NewStatus   domain.TicketStatus    `json:"new_status"`
}
