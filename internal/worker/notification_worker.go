package worker

import (
	"context"

	"github.com/spec-kit/factory-report-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a
// webhook worker is given, starts draining the webhook queue. The returned
// channel closes when the webhook worker exits, or immediately without one.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, webhooks *WebhookWorker) <-chan struct{} {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if webhooks == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return webhooks.Start(ctx)
}
