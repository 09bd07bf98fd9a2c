package domain

import "time"

// AuditActor identifies who caused an audit entry.
type AuditActor string

const (
	ActorSystem AuditActor = "system"
	ActorAgent  AuditActor = "agent"
	ActorUser   AuditActor = "user"
)

// AuditAction enumerates audit event kinds.
type AuditAction string

const (
	ActionTicketCreated   AuditAction = "TICKET_CREATED"
	ActionAgentClassified AuditAction = "AGENT_CLASSIFIED"
	ActionKBRetrieved     AuditAction = "KB_RETRIEVED"
	ActionDraftGenerated  AuditAction = "DRAFT_GENERATED"
	ActionAutoClosed      AuditAction = "AUTO_CLOSED"
	ActionAssignedToHuman AuditAction = "ASSIGNED_TO_HUMAN"
	ActionTriageFailed    AuditAction = "TRIAGE_FAILED"
	ActionReplySent       AuditAction = "REPLY_SENT"
	ActionTicketReopened  AuditAction = "TICKET_REOPENED"
)

// AuditLogEntry is an append-only record. Seq is assigned on insert and
// defines listing order; Timestamp is wall-clock and may step backwards.
type AuditLogEntry struct {
	ID        string
	Seq       int64
	TicketID  string
	TraceID   string
	Actor     AuditActor
	Action    AuditAction
	Meta      map[string]any
	Timestamp time.Time
}
