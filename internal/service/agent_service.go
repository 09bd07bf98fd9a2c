package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

// Triager runs triage for a ticket and waits for the result.
type Triager interface {
	Trigger(ctx context.Context, ticketID string) (triage.Result, error)
}

// SuggestionDetails is the latest suggestion with its cited articles resolved.
type SuggestionDetails struct {
	Suggestion *domain.AgentSuggestion
	Articles   []domain.ArticleReference
}

// AgentService exposes the administrative triage operations.
type AgentService struct {
	triager     Triager
	suggestions repository.SuggestionRepository
	articles    repository.ArticleRepository
}

// NewAgentService constructs the service.
func NewAgentService(triager Triager, suggestions repository.SuggestionRepository, articles repository.ArticleRepository) *AgentService {
	return &AgentService{triager: triager, suggestions: suggestions, articles: articles}
}

// Retriage runs the pipeline again under a new trace id. A missing ticket is a
// not-found error and a terminal ticket a conflict; other failed runs are
// returned as unsuccessful results.
func (s *AgentService) Retriage(ctx context.Context, ticketID string) (triage.Result, error) {
	res, err := s.triager.Trigger(ctx, ticketID)
	if err != nil {
		return triage.Result{}, apperrors.NewUnavailable("triage could not be scheduled", err)
	}
	switch {
	case errors.Is(res.Err, triage.ErrTicketNotFound):
		return res, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID, "traceId": res.TraceID})
	case errors.Is(res.Err, triage.ErrInvalidTransition):
		return res, apperrors.NewConflict("ticket is already resolved", map[string]any{"traceId": res.TraceID})
	}
	return res, nil
}

// LatestSuggestion returns the most recent suggestion for ticketID.
// Cited articles that no longer exist are omitted.
func (s *AgentService) LatestSuggestion(ctx context.Context, ticketID string) (*SuggestionDetails, error) {
	suggestion, err := s.suggestions.LatestForTicket(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &apperrors.DomainError{
			Code:       "NOT_FOUND",
			Message:    "No AI suggestion found for this ticket",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"ticketId": ticketID},
			Err:        apperrors.ErrNotFound,
		}
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	refs := make([]domain.ArticleReference, 0, len(suggestion.ArticleIDs))
	for _, id := range suggestion.ArticleIDs {
		article, err := s.articles.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		refs = append(refs, domain.ArticleReference{ID: article.ID, Title: article.Title})
	}
	return &SuggestionDetails{Suggestion: suggestion, Articles: refs}, nil
}
