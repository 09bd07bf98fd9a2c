package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/config"
	"github.com/spec-kit/helpdesk-triage/internal/events"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

// Enqueuer schedules a triage run without waiting for it.
type Enqueuer interface {
	Enqueue(ctx context.Context, ticketID string) error
}

// NotificationService reacts to ticket and triage events.
type NotificationService struct {
	dispatcher events.Dispatcher
	enqueuer   Enqueuer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. enqueuer receives every newly
// created ticket.
func NewNotificationService(dispatcher events.Dispatcher, enqueuer Enqueuer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		enqueuer:   enqueuer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAutoClosed, n.handleTicketAutoClosed)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketReplyAdded, n.handleTicketReplyAdded)
}

// handleTicketCreated hands the ticket to triage. The run is detached from
// the request context.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if n.enqueuer == nil {
		return nil
	}
	if err := n.enqueuer.Enqueue(context.WithoutCancel(ctx), event.TicketID); err != nil {
		n.logger.Error("failed to schedule triage", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) handleTicketAutoClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAutoClosed", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketReplyAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketReplyAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

// TriageFailed reports a failed run delivered by the worker pool.
func (n *NotificationService) TriageFailed(ctx context.Context, res triage.Result) {
	n.logger.Error("TriageFailed",
		zap.String("ticket_id", res.TicketID),
		zap.String("trace_id", res.TraceID),
		zap.String("error", res.Error),
	)
	n.sendWebhookNotificationStub(ctx, events.Event{Type: "triage_failed", TicketID: res.TicketID})
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
