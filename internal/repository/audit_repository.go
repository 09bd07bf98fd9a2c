package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// AuditRepository is the append-only audit trail. There is deliberately no
// update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByTrace(ctx context.Context, traceID string) ([]domain.AuditLogEntry, error)
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditLogEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_log (ticket_id, trace_id, actor, action, meta, ts)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, seq`
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.TraceID,
		entry.Actor,
		entry.Action,
		meta,
		entry.Timestamp,
	).Scan(&entry.ID, &entry.Seq)
}

func (r *auditRepository) ListByTrace(ctx context.Context, traceID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, seq, ticket_id, trace_id, actor, action, meta, ts
        FROM audit_log WHERE trace_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, traceID)
	if err != nil {
		return nil, err
	}
	return scanAuditEntries(rows)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, seq, ticket_id, trace_id, actor, action, meta, ts
        FROM audit_log WHERE ticket_id=$1 ORDER BY seq ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditLogEntry, error) {
	defer rows.Close()
	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Seq,
			&entry.TicketID,
			&entry.TraceID,
			&entry.Actor,
			&entry.Action,
			&entry.Meta,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
