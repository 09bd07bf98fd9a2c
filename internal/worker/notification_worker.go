package worker

import (
	"context"

	"github.com/spec-kit/helpdesk-triage/internal/service"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

// StartNotificationWorker registers outcome notifications and forwards failed
// runs from failures until the channel closes or ctx ends.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService, failures <-chan triage.Result) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
	if failures == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-failures:
				if !ok {
					return
				}
				notifications.TriageFailed(ctx, res)
			}
		}
	}()
}
