package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// SuggestionRepository stores AgentSuggestion records. Records are never updated.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *domain.AgentSuggestion) error
	GetByID(ctx context.Context, id string) (*domain.AgentSuggestion, error)
	LatestForTicket(ctx context.Context, ticketID string) (*domain.AgentSuggestion, error)
}

type suggestionRepository struct {
	pool *pgxpool.Pool
}

// NewSuggestionRepository builds repository.
func NewSuggestionRepository(pool *pgxpool.Pool) SuggestionRepository {
	return &suggestionRepository{pool: pool}
}

const suggestionColumns = `id, ticket_id, trace_id, predicted_category, article_ids, draft_reply,
               confidence, auto_closed, model_info, created_at`

func (r *suggestionRepository) Create(ctx context.Context, s *domain.AgentSuggestion) error {
	const query = `
        INSERT INTO agent_suggestions (ticket_id, trace_id, predicted_category, article_ids, draft_reply,
            confidence, auto_closed, model_info)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	articleIDs := s.ArticleIDs
	if articleIDs == nil {
		articleIDs = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		s.TicketID,
		s.TraceID,
		s.PredictedCategory,
		articleIDs,
		s.DraftReply,
		s.Confidence,
		s.AutoClosed,
		s.ModelInfo,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *suggestionRepository) GetByID(ctx context.Context, id string) (*domain.AgentSuggestion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + suggestionColumns + ` FROM agent_suggestions WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *suggestionRepository) LatestForTicket(ctx context.Context, ticketID string) (*domain.AgentSuggestion, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + suggestionColumns + ` FROM agent_suggestions
        WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, ticketID)
}

func (r *suggestionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AgentSuggestion, error) {
	var s domain.AgentSuggestion
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.TicketID,
		&s.TraceID,
		&s.PredictedCategory,
		&s.ArticleIDs,
		&s.DraftReply,
		&s.Confidence,
		&s.AutoClosed,
		&s.ModelInfo,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
