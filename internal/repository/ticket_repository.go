package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses  []domain.TicketStatus
	CreatedBy *string
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes the ticket only if its stored version equals ticket.Version,
	// appends replies that have no ID yet and bumps ticket.Version on success.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, category, status, created_by, assignee_id, suggestion_id,
               auto_resolved, resolved_by, resolved_at, resolution_type, resolution_confidence,
               version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category, status, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var (
		resolvedBy     *string
		resolvedAt     any
		resolutionType *domain.ResolutionType
		resolutionConf *float64
	)
	if res := ticket.Resolution; res != nil {
		resolvedBy = res.ResolvedBy
		resolvedAt = res.ResolvedAt
		resolutionType = &res.Type
		resolutionConf = res.Confidence
	}

	const query = `
        UPDATE tickets SET title=$1, description=$2, category=$3, status=$4, assignee_id=$5,
            suggestion_id=$6, auto_resolved=$7, resolved_by=$8, resolved_at=$9, resolution_type=$10,
            resolution_confidence=$11, version=version+1, updated_at=NOW()
        WHERE id=$12 AND version=$13
        RETURNING version, updated_at`
	err = tx.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.AssigneeID,
		ticket.SuggestionID,
		ticket.AutoResolved,
		resolvedBy,
		resolvedAt,
		resolutionType,
		resolutionConf,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}

	for i := range ticket.Replies {
		reply := &ticket.Replies[i]
		if reply.ID != "" {
			continue
		}
		const insertReply = `
            INSERT INTO ticket_replies (ticket_id, author_type, author_id, content, metadata)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertReply,
			ticket.ID,
			reply.AuthorType,
			reply.AuthorID,
			reply.Content,
			reply.Metadata,
		).Scan(&reply.ID, &reply.CreatedAt); err != nil {
			return fmt.Errorf("insert reply: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	replies, err := r.listReplies(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Replies = replies
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) listReplies(ctx context.Context, ticketID string) ([]domain.TicketReply, error) {
	const query = `
        SELECT id, author_type, author_id, content, metadata, created_at
        FROM ticket_replies WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketReply
	for rows.Next() {
		var reply domain.TicketReply
		if err := rows.Scan(
			&reply.ID,
			&reply.AuthorType,
			&reply.AuthorID,
			&reply.Content,
			&reply.Metadata,
			&reply.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, reply)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket         domain.Ticket
		resolvedBy     *string
		resolvedAt     *time.Time
		resolutionType *domain.ResolutionType
		resolutionConf *float64
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssigneeID,
		&ticket.SuggestionID,
		&ticket.AutoResolved,
		&resolvedBy,
		&resolvedAt,
		&resolutionType,
		&resolutionConf,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if resolvedAt != nil && resolutionType != nil {
		ticket.Resolution = &domain.Resolution{
			ResolvedBy: resolvedBy,
			ResolvedAt: *resolvedAt,
			Type:       *resolutionType,
			Confidence: resolutionConf,
		}
	}
	return &ticket, nil
}
