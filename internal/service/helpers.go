package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/repository"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func clockOrNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// publishEvent stamps and dispatches an event. Listener failures never undo
// the state change that produced the event, so they are only logged.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = now()
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event listener failed",
			zap.String("event_type", string(event.Type)),
			zap.String("report_id", event.ReportID),
			zap.Error(err))
	}
}

func mapRepoError(err error, id string) error {
	if errors.Is(err, repository.ErrReportNotFound) {
		return apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewInternalError(err)
}
