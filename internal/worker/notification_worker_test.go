package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-triage/internal/config"
	"github.com/spec-kit/helpdesk-triage/internal/events"
	"github.com/spec-kit/helpdesk-triage/internal/service"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

func TestNotificationWorkerForwardsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, nil, zap.New(core), config.NotificationConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	failures := make(chan triage.Result, 1)
	StartNotificationWorker(ctx, notifications, failures)

	failures <- triage.Result{TicketID: "t1", TraceID: "tr-1", Error: "Ticket not found"}
	close(failures)

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("TriageFailed").Len() == 1
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketEscalated, TicketID: "t2"}))
	assert.Equal(t, 1, logs.FilterMessage("TicketEscalated").Len())
}
