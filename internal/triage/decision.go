package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

// Action is the outcome of the decision stage.
type Action string

const (
	ActionAutoClosed      Action = "auto_closed"
	ActionAssignedToHuman Action = "assigned_to_human"
)

const maxDraftReplyLength = 2000

// DecisionInput carries everything the decision stage needs. Settings is the
// snapshot read at the start of the run.
type DecisionInput struct {
	TraceID        string
	Ticket         *domain.Ticket
	Classification Classification
	Draft          Draft
	Settings       domain.TriageSettings
}

// Decision is the persisted outcome. Ticket reflects the stored version.
type Decision struct {
	Action     Action
	Suggestion *domain.AgentSuggestion
	Ticket     *domain.Ticket
}

// DecisionEngine applies the auto-close policy and mutates the ticket.
type DecisionEngine struct {
	tickets     repository.TicketRepository
	suggestions repository.SuggestionRepository
	now         func() time.Time
}

// NewDecisionEngine builds the engine.
func NewDecisionEngine(tickets repository.TicketRepository, suggestions repository.SuggestionRepository) *DecisionEngine {
	return &DecisionEngine{tickets: tickets, suggestions: suggestions, now: time.Now}
}

// ShouldAutoClose is the auto-close policy. The threshold is inclusive.
func ShouldAutoClose(settings domain.TriageSettings, confidence float64) bool {
	return settings.AutoCloseEnabled && confidence >= settings.ConfidenceThreshold
}

// Decide persists a suggestion and then either resolves the ticket with a
// system reply or hands it to a human. Any write failure is fatal.
func (e *DecisionEngine) Decide(ctx context.Context, in DecisionInput) (Decision, error) {
	autoClose := ShouldAutoClose(in.Settings, in.Draft.Confidence)
	action, target := ActionAssignedToHuman, domain.TicketStatusWaitingHuman
	if autoClose {
		action, target = ActionAutoClosed, domain.TicketStatusResolved
	}
	if !domain.CanTransition(in.Ticket.Status, target) {
		return Decision{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, in.Ticket.Status, target)
	}

	suggestion := &domain.AgentSuggestion{
		TicketID:          in.Ticket.ID,
		TraceID:           in.TraceID,
		PredictedCategory: in.Classification.Category,
		ArticleIDs:        append([]string{}, in.Draft.Citations...),
		DraftReply:        truncateRunes(in.Draft.ReplyText, maxDraftReplyLength),
		Confidence:        in.Draft.Confidence,
		AutoClosed:        autoClose,
		ModelInfo:         in.Draft.ModelInfo,
	}
	if err := e.suggestions.Create(ctx, suggestion); err != nil {
		return Decision{}, fmt.Errorf("%w: create suggestion: %w", ErrPersistence, err)
	}

	ticket := in.Ticket.Clone()
	ticket.Status = target
	ticket.SuggestionID = &suggestion.ID
	if autoClose {
		confidence := suggestion.Confidence
		refs := make([]domain.ArticleReference, 0, len(in.Draft.CitedArticles))
		for _, a := range in.Draft.CitedArticles {
			refs = append(refs, domain.ArticleReference{ID: a.ID, Title: a.Title})
		}
		ticket.Replies = append(ticket.Replies, domain.TicketReply{
			AuthorType: domain.ReplyAuthorSystem,
			Content:    RenderAutoReply(in.Draft),
			Metadata: domain.ReplyMetadata{
				IsAutoReply:       true,
				Confidence:        &confidence,
				ArticleReferences: refs,
			},
		})
		ticket.AutoResolved = true
		ticket.Resolution = &domain.Resolution{
			ResolvedAt: e.now(),
			Type:       domain.ResolutionAuto,
			Confidence: &confidence,
		}
	}

	if err := e.tickets.Update(ctx, ticket); err != nil {
		return Decision{}, fmt.Errorf("%w: update ticket: %w", ErrPersistence, err)
	}
	return Decision{Action: action, Suggestion: suggestion, Ticket: ticket}, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
