package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/config"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/notify"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  notify.WebhookPublisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. publisher may be nil when no
// queue is available; events are then only logged.
func NewNotificationService(dispatcher events.Dispatcher, publisher notify.WebhookPublisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     loggerOrNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReportCreated, n.handleReportCreated)
	n.dispatcher.Subscribe(events.EventReportClaimed, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventReportResolved, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventReportReassigned, n.handleReportReassigned)
	n.dispatcher.Subscribe(events.EventReportDeleted, n.handleReportDeleted)
}

func (n *NotificationService) handleReportCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportCreated", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportStatusChanged",
		zap.String("report_id", event.ReportID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor", event.Actor.Name),
		zap.Any("payload", event.Payload))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) handleReportReassigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportReassigned", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) handleReportDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportDeleted", zap.String("report_id", event.ReportID), zap.String("actor", event.Actor.Name))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) enqueueWebhook(ctx context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" || n.publisher == nil {
		return nil
	}
	payload, err := notify.NewWebhookPayload(event)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, payload); err != nil {
		n.logger.Error("enqueue webhook failed",
			zap.String("report_id", event.ReportID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	n.logger.Debug("webhook enqueued",
		zap.String("report_id", event.ReportID),
		zap.String("event_type", string(event.Type)))
	return nil
}
