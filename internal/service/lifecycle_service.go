package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/repository"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

// LifecycleService moves reports through New, In Progress and Resolved.
// Every command takes the actor from the verified session.
type LifecycleService struct {
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// UpdateReportInput is the partial body accepted by PUT /reports/:id.
type UpdateReportInput struct {
	Status             *domain.ReportStatus
	AssignedTechnician *string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps ReportDependencies) *LifecycleService {
	return &LifecycleService{
		reports:    deps.ReportRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Now),
	}
}

var allowedTransitions = map[domain.ReportStatus][]domain.ReportStatus{
	domain.ReportStatusNew:        {domain.ReportStatusInProgress},
	domain.ReportStatusInProgress: {domain.ReportStatusResolved},
	domain.ReportStatusResolved:   {},
}

func isValidTransition(current, next domain.ReportStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Claim assigns a New report to the calling technician.
func (s *LifecycleService) Claim(ctx context.Context, actor *domain.User, id string) (*domain.Report, error) {
	if err := requireTechnician(actor, "claim"); err != nil {
		return nil, err
	}

	var oldStatus domain.ReportStatus
	report, err := s.reports.Update(ctx, id, func(r *domain.Report) error {
		if !isValidTransition(r.Status, domain.ReportStatusInProgress) {
			return invalidTransition(r, "claim")
		}
		oldStatus = r.Status
		name := actor.Name
		r.Status = domain.ReportStatusInProgress
		r.AssignedTechnician = &name
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, id)
	}

	s.logger.Info("report claimed", zap.String("report_id", id), zap.String("technician", actor.Name))
	s.publishStatusChange(ctx, events.EventReportClaimed, actor, report, oldStatus)
	return report, nil
}

// Resolve closes an In Progress report. Any authenticated actor may resolve.
func (s *LifecycleService) Resolve(ctx context.Context, actor *domain.User, id string) (*domain.Report, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	var oldStatus domain.ReportStatus
	report, err := s.reports.Update(ctx, id, func(r *domain.Report) error {
		if !isValidTransition(r.Status, domain.ReportStatusResolved) {
			return invalidTransition(r, "resolve")
		}
		oldStatus = r.Status
		r.Status = domain.ReportStatusResolved
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, id)
	}

	s.logger.Info("report resolved", zap.String("report_id", id), zap.String("actor", actor.Name))
	s.publishStatusChange(ctx, events.EventReportResolved, actor, report, oldStatus)
	return report, nil
}

// Reassign hands an In Progress report to another technician.
func (s *LifecycleService) Reassign(ctx context.Context, actor *domain.User, id, technician string) (*domain.Report, error) {
	if err := requireTechnician(actor, "reassign"); err != nil {
		return nil, err
	}
	technician = strings.TrimSpace(technician)
	if technician == "" {
		return nil, apperrors.NewValidationError("assignedTechnician is required", map[string]any{"fields": []string{"assignedTechnician"}})
	}

	var previous *string
	report, err := s.reports.Update(ctx, id, func(r *domain.Report) error {
		if r.Status != domain.ReportStatusInProgress {
			return invalidTransition(r, "reassign")
		}
		previous = r.AssignedTechnician
		r.AssignedTechnician = &technician
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, id)
	}

	s.logger.Info("report reassigned", zap.String("report_id", report.ID), zap.String("technician", technician))
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventReportReassigned,
		ReportID: report.ID,
		Actor:    events.ActorFromUser(actor),
		Payload: events.ReportReassignedPayload{
			OldTechnician: previous,
			NewTechnician: technician,
		},
	})
	return report, nil
}

// Delete removes a Resolved report.
func (s *LifecycleService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireTechnician(actor, "delete"); err != nil {
		return err
	}

	var reportID, title string
	deleted, err := s.reports.Delete(ctx, id, func(r *domain.Report) error {
		if r.Status != domain.ReportStatusResolved {
			return invalidTransition(r, "delete")
		}
		reportID, title = r.ID, r.Title
		return nil
	})
	if err != nil {
		return mapRepoError(err, id)
	}
	if !deleted {
		return apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}

	s.logger.Info("report deleted", zap.String("report_id", reportID), zap.String("technician", actor.Name))
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventReportDeleted,
		ReportID: reportID,
		Actor:    events.ActorFromUser(actor),
		Payload:  events.ReportDeletedPayload{Title: title},
	})
	return nil
}

// ApplyUpdate maps a partial update onto the typed commands. Status wins over
// assignedTechnician when both are present.
func (s *LifecycleService) ApplyUpdate(ctx context.Context, actor *domain.User, id string, input UpdateReportInput) (*domain.Report, error) {
	if input.Status != nil {
		switch *input.Status {
		case domain.ReportStatusInProgress:
			return s.Claim(ctx, actor, id)
		case domain.ReportStatusResolved:
			return s.Resolve(ctx, actor, id)
		case domain.ReportStatusNew:
			return nil, apperrors.NewInvalidState("reports cannot be reopened", map[string]any{"report_id": id})
		default:
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
	}
	if input.AssignedTechnician != nil {
		return s.Reassign(ctx, actor, id, *input.AssignedTechnician)
	}
	return nil, apperrors.NewValidationError("no updatable fields", map[string]any{"fields": []string{"status", "assignedTechnician"}})
}

func (s *LifecycleService) publishStatusChange(ctx context.Context, eventType events.EventType, actor *domain.User, report *domain.Report, oldStatus domain.ReportStatus) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     eventType,
		ReportID: report.ID,
		Actor:    events.ActorFromUser(actor),
		Payload: events.ReportStatusChangedPayload{
			OldStatus:          oldStatus,
			NewStatus:          report.Status,
			AssignedTechnician: report.AssignedTechnician,
		},
	})
}

func requireTechnician(actor *domain.User, action string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsTechnician() {
		return apperrors.NewForbidden("only technicians can " + action + " reports")
	}
	return nil
}

func invalidTransition(r *domain.Report, action string) error {
	return apperrors.NewInvalidState("cannot "+action+" report in status "+string(r.Status), map[string]any{
		"report_id": r.ID,
		"status":    r.Status,
	})
}
