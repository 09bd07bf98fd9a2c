package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/events"
	"github.com/spec-kit/helpdesk-triage/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

func newStore() *memory.Store {
	return memory.NewStore(domain.TriageSettings{AutoCloseEnabled: true, ConfidenceThreshold: 0.78, SLAHours: 24})
}

func newTicketService(store *memory.Store, dispatcher events.Dispatcher) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets(),
		AuditRepo:  store.Audit(),
		Dispatcher: dispatcher,
	})
}

func requireDomainError(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, code, de.Code)
	return de
}

func TestCreateTicketValidation(t *testing.T) {
	svc := newTicketService(newStore(), nil)
	ctx := context.Background()

	cases := map[string]struct {
		input TicketCreateInput
		field string
	}{
		"short title":        {TicketCreateInput{Title: "Hi", Description: "long enough description"}, "title"},
		"long title":         {TicketCreateInput{Title: strings.Repeat("a", 201), Description: "long enough description"}, "title"},
		"short description":  {TicketCreateInput{Title: "Valid title", Description: "short"}, "description"},
		"unknown category":   {TicketCreateInput{Title: "Valid title", Description: "long enough description", Category: "legal"}, "category"},
		"whitespace padding": {TicketCreateInput{Title: "  ab  ", Description: "long enough description"}, "title"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateTicket(ctx, tc.input)
			de := requireDomainError(t, err, "VALIDATION_FAILED")
			assert.Contains(t, de.Details, tc.field)
		})
	}
}

func TestCreateTicketDefaultsAndPublishes(t *testing.T) {
	store := newStore()
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	svc := newTicketService(store, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Title:       "Where is my parcel",
		Description: "Ordered last week and nothing arrived yet",
		CreatedBy:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryOther, ticket.Category)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.NotEmpty(t, ticket.ID)

	require.Len(t, published, 1)
	assert.Equal(t, ticket.ID, published[0].TicketID)
	assert.NotEmpty(t, published[0].ID)
	payload, ok := published[0].Payload.(events.TicketCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, "Where is my parcel", payload.Title)
}

func TestGetTicketNotFound(t *testing.T) {
	_, err := newTicketService(newStore(), nil).GetTicket(context.Background(), "missing")
	de := requireDomainError(t, err, "NOT_FOUND")
	assert.Equal(t, 404, de.HTTPStatus)
}

func TestAddAgentReplyResolves(t *testing.T) {
	store := newStore()
	svc := newTicketService(store, nil)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, TicketCreateInput{Title: "Refund please", Description: "I was charged twice this month"})
	require.NoError(t, err)

	updated, err := svc.AddAgentReply(ctx, ticket.ID, AgentReplyInput{AgentID: "agent-7", Content: "Refund issued."})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.Resolution)
	assert.Equal(t, domain.ResolutionAgent, updated.Resolution.Type)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, "agent-7", *updated.AssigneeID)
	require.Len(t, updated.Replies, 1)
	assert.Equal(t, domain.ReplyAuthorAgent, updated.Replies[0].AuthorType)

	trail, err := svc.ListAudit(ctx, ticket.ID, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.ActionReplySent, trail[0].Action)
	assert.True(t, strings.HasPrefix(trail[0].TraceID, "reply-"))
	assert.Equal(t, "resolved", trail[0].Meta["newStatus"])

	_, err = svc.AddAgentReply(ctx, ticket.ID, AgentReplyInput{AgentID: "agent-7", Content: "Again"})
	requireDomainError(t, err, "CONFLICT")
}

func TestAddAgentReplyKeepsStatus(t *testing.T) {
	svc := newTicketService(newStore(), nil)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, TicketCreateInput{Title: "App crashes", Description: "Crashes on launch every time"})
	require.NoError(t, err)

	updated, err := svc.AddAgentReply(ctx, ticket.ID, AgentReplyInput{Content: "Which version?", Action: ReplyActionReply})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Nil(t, updated.Resolution)

	_, err = svc.AddAgentReply(ctx, ticket.ID, AgentReplyInput{Content: "   "})
	requireDomainError(t, err, "VALIDATION_FAILED")
	_, err = svc.AddAgentReply(ctx, ticket.ID, AgentReplyInput{Content: "ok", Action: "close"})
	requireDomainError(t, err, "VALIDATION_FAILED")
}

func TestListAuditFiltersByTicket(t *testing.T) {
	store := newStore()
	svc := newTicketService(store, nil)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, TicketCreateInput{Title: "Invoice issue", Description: "Invoice shows the wrong amount"})
	require.NoError(t, err)
	require.NoError(t, store.Audit().Append(ctx, &domain.AuditLogEntry{TicketID: ticket.ID, TraceID: "tr-1", Action: domain.ActionTicketCreated}))
	require.NoError(t, store.Audit().Append(ctx, &domain.AuditLogEntry{TicketID: "someone-else", TraceID: "tr-1", Action: domain.ActionTicketCreated}))

	trail, err := svc.ListAudit(ctx, ticket.ID, "tr-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, ticket.ID, trail[0].TicketID)

	_, err = svc.ListAudit(ctx, "missing", "", 0, 0)
	requireDomainError(t, err, "NOT_FOUND")
}
