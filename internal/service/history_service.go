package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/repository"
)

// HistoryService keeps the per-report audit trail from lifecycle events.
type HistoryService struct {
	history repository.ReportHistoryRepository
	reports repository.ReportRepository
	logger  *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(history repository.ReportHistoryRepository, reports repository.ReportRepository, logger *zap.Logger) *HistoryService {
	return &HistoryService{history: history, reports: reports, logger: loggerOrNop(logger)}
}

// RegisterHandlers subscribes to the events that change a report.
func (s *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventReportCreated, s.record)
	dispatcher.Subscribe(events.EventReportClaimed, s.record)
	dispatcher.Subscribe(events.EventReportResolved, s.record)
	dispatcher.Subscribe(events.EventReportReassigned, s.record)
}

// ListHistory returns the audit trail of an existing report, oldest first.
func (s *HistoryService) ListHistory(ctx context.Context, reportID string) ([]domain.ReportHistory, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, mapRepoError(err, reportID)
	}
	entries, err := s.history.ListByReport(ctx, reportID)
	if err != nil {
		return nil, mapRepoError(err, reportID)
	}
	return entries, nil
}

func (s *HistoryService) record(ctx context.Context, event events.Event) error {
	entry := &domain.ReportHistory{
		ReportID:      event.ReportID,
		ChangedByID:   event.Actor.ID,
		ChangedByName: event.Actor.Name,
		CreatedAt:     event.Timestamp,
	}
	switch payload := event.Payload.(type) {
	case events.ReportCreatedPayload:
		entry.ChangeType = domain.ChangeTypeCreated
		entry.NewValue = map[string]any{"status": domain.ReportStatusNew, "priority": payload.Priority}
	case events.ReportStatusChangedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"status": payload.OldStatus}
		entry.NewValue = map[string]any{"status": payload.NewStatus}
		if payload.AssignedTechnician != nil {
			entry.NewValue["assignedTechnician"] = *payload.AssignedTechnician
		}
	case events.ReportReassignedPayload:
		entry.ChangeType = domain.ChangeTypeAssignee
		if payload.OldTechnician != nil {
			entry.OldValue = map[string]any{"assignedTechnician": *payload.OldTechnician}
		}
		entry.NewValue = map[string]any{"assignedTechnician": payload.NewTechnician}
	default:
		return nil
	}

	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("record report history failed",
			zap.String("report_id", event.ReportID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
