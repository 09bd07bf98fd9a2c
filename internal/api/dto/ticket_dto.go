package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category"`
	CreatedBy   string          `json:"created_by"`
}

// AddReplyRequest payload for agent replies.
type AddReplyRequest struct {
	AgentID string `json:"agent_id"`
	Content string `json:"content"`
	Action  string `json:"action"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Category     domain.Category     `json:"category"`
	Status       domain.TicketStatus `json:"status"`
	CreatedBy    string              `json:"created_by"`
	AssigneeID   *string             `json:"assignee_id"`
	AutoResolved bool                `json:"auto_resolved"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description  string              `json:"description"`
	SuggestionID *string             `json:"suggestion_id"`
	Resolution   *ResolutionResponse `json:"resolution"`
	Replies      []ReplyResponse     `json:"replies"`
	Version      int64               `json:"version"`
}

// ResolutionResponse describes how a ticket was resolved.
type ResolutionResponse struct {
	Type       domain.ResolutionType `json:"type"`
	ResolvedBy *string               `json:"resolved_by"`
	ResolvedAt time.Time             `json:"resolved_at"`
	Confidence *float64              `json:"confidence,omitempty"`
}

// ReplyResponse represents one thread message.
type ReplyResponse struct {
	ID         string                 `json:"id"`
	AuthorType domain.ReplyAuthorType `json:"author_type"`
	AuthorID   *string                `json:"author_id"`
	Content    string                 `json:"content"`
	Metadata   domain.ReplyMetadata   `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AuditEntryResponse is one audit log row.
type AuditEntryResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	TraceID   string             `json:"trace_id"`
	Actor     domain.AuditActor  `json:"actor"`
	Action    domain.AuditAction `json:"action"`
	Meta      map[string]any     `json:"meta"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewTicketSummary projects ticket.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Category:     ticket.Category,
		Status:       ticket.Status,
		CreatedBy:    ticket.CreatedBy,
		AssigneeID:   ticket.AssigneeID,
		AutoResolved: ticket.AutoResolved,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// NewTicketDetail projects ticket with its thread.
func NewTicketDetail(ticket *domain.Ticket) TicketDetailResponse {
	replies := make([]ReplyResponse, 0, len(ticket.Replies))
	for _, r := range ticket.Replies {
		meta := r.Metadata
		if meta.ArticleReferences == nil {
			meta.ArticleReferences = []domain.ArticleReference{}
		}
		replies = append(replies, ReplyResponse{
			ID:         r.ID,
			AuthorType: r.AuthorType,
			AuthorID:   r.AuthorID,
			Content:    r.Content,
			Metadata:   meta,
			CreatedAt:  r.CreatedAt,
		})
	}
	var resolution *ResolutionResponse
	if ticket.Resolution != nil {
		resolution = &ResolutionResponse{
			Type:       ticket.Resolution.Type,
			ResolvedBy: ticket.Resolution.ResolvedBy,
			ResolvedAt: ticket.Resolution.ResolvedAt,
			Confidence: ticket.Resolution.Confidence,
		}
	}
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(ticket),
		Description:   ticket.Description,
		SuggestionID:  ticket.SuggestionID,
		Resolution:    resolution,
		Replies:       replies,
		Version:       ticket.Version,
	}
}

// NewAuditEntries projects an audit trail.
func NewAuditEntries(entries []domain.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		meta := e.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			TicketID:  e.TicketID,
			TraceID:   e.TraceID,
			Actor:     e.Actor,
			Action:    e.Action,
			Meta:      meta,
			Timestamp: e.Timestamp,
		})
	}
	return out
}
