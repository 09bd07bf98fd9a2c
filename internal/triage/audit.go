package triage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

const auditWriteTimeout = 5 * time.Second

// AuditLogger appends audit entries. Writes are best effort: failures are
// logged and counted but never returned.
type AuditLogger struct {
	repo    repository.AuditRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewAuditLogger builds the logger.
func NewAuditLogger(repo repository.AuditRepository, logger *zap.Logger, metrics *observability.Metrics) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// Log appends one entry. The write is detached from ctx cancellation so a
// timed-out stage can still record its failure.
func (a *AuditLogger) Log(ctx context.Context, ticketID, traceID string, actor domain.AuditActor, action domain.AuditAction, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	entry := &domain.AuditLogEntry{
		TicketID:  ticketID,
		TraceID:   traceID,
		Actor:     actor,
		Action:    action,
		Meta:      meta,
		Timestamp: a.now().UTC(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := a.repo.Append(writeCtx, entry); err != nil {
		a.metrics.RecordAuditFailure()
		a.logger.Warn("failed to write audit entry",
			zap.String("ticket_id", ticketID),
			zap.String("trace_id", traceID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}
