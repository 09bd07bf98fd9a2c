package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/events"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

const (
	minTitleLength       = 5
	minDescriptionLength = 10
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// ReplyAction decides what an agent reply does to the ticket status.
type ReplyAction string

const (
	ReplyActionResolve ReplyAction = "resolve"
	ReplyActionReply   ReplyAction = "reply"
)

// TicketService coordinates ticket workflows outside the triage pipeline.
type TicketService struct {
	tickets    repository.TicketRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.Category
	CreatedBy   string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses  []domain.TicketStatus
	CreatedBy *string
	Limit     int
	Offset    int
}

// AgentReplyInput describes a human agent reply.
type AgentReplyInput struct {
	AgentID string
	Content string
	Action  ReplyAction
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket validates and stores an open ticket, then publishes
// ticket_created. Triage subscribers run without blocking the caller.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   strings.TrimSpace(input.CreatedBy),
	}
	if ticket.Category == "" {
		ticket.Category = domain.CategoryOther
	}
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(ticket.CreatedBy),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

func validateTicket(t *domain.Ticket) error {
	details := map[string]any{}
	switch n := utf8.RuneCountInString(t.Title); {
	case n < minTitleLength:
		details["title"] = "must be at least 5 characters"
	case n > maxTitleLength:
		details["title"] = "must be at most 200 characters"
	}
	switch n := utf8.RuneCountInString(t.Description); {
	case n < minDescriptionLength:
		details["description"] = "must be at least 10 characters"
	case n > maxDescriptionLength:
		details["description"] = "must be at most 5000 characters"
	}
	if !t.Category.Valid() {
		details["category"] = "must be one of billing, tech, shipping, other"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

// GetTicket returns a ticket with its replies.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses:  filter.Statuses,
		CreatedBy: filter.CreatedBy,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddAgentReply appends a human reply. With ReplyActionResolve the ticket
// moves to resolved; the agent becomes the assignee when none is set.
func (s *TicketService) AddAgentReply(ctx context.Context, ticketID string, input AgentReplyInput) (*domain.Ticket, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("reply content is required", map[string]any{"content": "required"})
	}
	if input.Action == "" {
		input.Action = ReplyActionResolve
	}
	if input.Action != ReplyActionResolve && input.Action != ReplyActionReply {
		return nil, apperrors.NewValidationError("invalid reply action", map[string]any{"action": "must be resolve or reply"})
	}

	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if input.Action == ReplyActionResolve && !domain.CanTransition(ticket.Status, domain.TicketStatusResolved) {
		return nil, apperrors.NewConflict("ticket cannot be resolved from status "+string(ticket.Status), nil)
	}

	var agentID *string
	if id := strings.TrimSpace(input.AgentID); id != "" {
		agentID = &id
	}
	ticket.Replies = append(ticket.Replies, domain.TicketReply{
		AuthorType: domain.ReplyAuthorAgent,
		AuthorID:   agentID,
		Content:    content,
		Metadata:   domain.ReplyMetadata{ArticleReferences: []domain.ArticleReference{}},
	})
	if ticket.AssigneeID == nil {
		ticket.AssigneeID = agentID
	}
	if input.Action == ReplyActionResolve {
		ticket.Status = domain.TicketStatusResolved
		ticket.Resolution = &domain.Resolution{
			ResolvedBy: agentID,
			ResolvedAt: s.now(),
			Type:       domain.ResolutionAgent,
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	reply := ticket.Replies[len(ticket.Replies)-1]
	s.recordAudit(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		TraceID:  "reply-" + uuid.NewString(),
		Actor:    domain.ActorAgent,
		Action:   domain.ActionReplySent,
		Meta: map[string]any{
			"agentId":     derefOr(agentID, ""),
			"replyLength": utf8.RuneCountInString(content),
			"newStatus":   string(ticket.Status),
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplyAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: domain.ActorAgent, ID: agentID},
		Payload: events.TicketReplyAddedPayload{
			ReplyID:     reply.ID,
			AuthorType:  reply.AuthorType,
			AuthorID:    reply.AuthorID,
			BodyPreview: stringPreview(content, 120),
			NewStatus:   ticket.Status,
		},
	})
	return ticket, nil
}

// ListAudit returns a ticket's audit trail, or a single run's when traceID is set.
func (s *TicketService) ListAudit(ctx context.Context, ticketID, traceID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	var (
		entries []domain.AuditLogEntry
		err     error
	)
	if traceID != "" {
		entries, err = s.audit.ListByTrace(ctx, traceID)
	} else {
		entries, err = s.audit.ListByTicket(ctx, ticketID, limit, offset)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	filtered := make([]domain.AuditLogEntry, 0, len(entries))
	for _, e := range entries {
		if e.TicketID == ticketID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *TicketService) recordAudit(ctx context.Context, entry *domain.AuditLogEntry) {
	if s.audit == nil {
		return
	}
	entry.Timestamp = s.now().UTC()
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit entry",
			zap.String("ticket_id", entry.TicketID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}

func userActor(userID string) events.Actor {
	actor := events.Actor{Type: domain.ActorUser}
	if userID != "" {
		actor.ID = &userID
	}
	return actor
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
