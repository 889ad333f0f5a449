package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/query"
	"github.com/spec-kit/factory-report-service/internal/repository"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

// ReportService coordinates report reads and creation.
type ReportService struct {
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// ReportDependencies bundles collaborators for report services.
type ReportDependencies struct {
	ReportRepo repository.ReportRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// CreateReportInput describes report creation payload. Pointers distinguish
// a missing coordinate from zero.
type CreateReportInput struct {
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Priority    domain.ReportPriority
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		reports:    deps.ReportRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Now),
		newID:      uuid.NewString,
	}
}

// CreateReport validates input and stores a new report in status New.
func (s *ReportService) CreateReport(ctx context.Context, actor *domain.User, input CreateReportInput) (*domain.Report, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	report := &domain.Report{
		ID:          s.newID(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Latitude:    *input.Latitude,
		Longitude:   *input.Longitude,
		Priority:    input.Priority,
		Status:      domain.ReportStatusNew,
		Timestamp:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("create report failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("report created",
		zap.String("report_id", report.ID),
		zap.String("priority", string(report.Priority)),
		zap.String("location", report.Location))
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventReportCreated,
		ReportID: report.ID,
		Actor:    events.ActorFromUser(actor),
		Payload: events.ReportCreatedPayload{
			Title:    report.Title,
			Location: report.Location,
			Priority: report.Priority,
		},
	})
	return report, nil
}

// GetReport fetches a single report.
func (s *ReportService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return report, nil
}

// ListReports returns the filtered and sorted report view.
func (s *ReportService) ListReports(ctx context.Context, filter query.Filter, sort query.Sort) ([]domain.Report, error) {
	reports, err := s.reports.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return query.View(reports, filter, sort), nil
}

// Stats counts reports by status.
func (s *ReportService) Stats(ctx context.Context) (domain.ReportStats, error) {
	stats, err := s.reports.Stats(ctx)
	if err != nil {
		return domain.ReportStats{}, apperrors.NewInternalError(err)
	}
	return stats, nil
}

// SeedSampleReports loads the demo reports shown on a fresh dashboard. It only
// runs against an empty store so a deleted sample id is never handed out again.
func (s *ReportService) SeedSampleReports(ctx context.Context) (int, error) {
	stats, err := s.reports.Stats(ctx)
	if err != nil {
		return 0, err
	}
	if stats.Total > 0 {
		s.logger.Debug("store not empty, skipping sample reports", zap.Int("total", stats.Total))
		return 0, nil
	}

	seeded := 0
	for _, report := range sampleReports(s.now()) {
		report := report
		err := s.reports.Create(ctx, &report)
		if errors.Is(err, repository.ErrReportExists) {
			continue
		}
		if err != nil {
			return seeded, err
		}
		seeded++
	}
	s.logger.Info("sample reports seeded", zap.Int("count", seeded))
	return seeded, nil
}

func validateCreateInput(input CreateReportInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(input.Location) == "" {
		missing = append(missing, "location")
	}
	if input.Latitude == nil {
		missing = append(missing, "latitude")
	}
	if input.Longitude == nil {
		missing = append(missing, "longitude")
	}
	if input.Priority == "" {
		missing = append(missing, "priority")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !input.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	return nil
}

func sampleReports(now time.Time) []domain.Report {
	john := "John Smith"
	sarah := "Sarah Johnson"
	return []domain.Report{
		{
			ID:                 "1",
			Title:              "Conveyor Belt Malfunction",
			Description:        "Belt is moving slower than normal, potential motor issue",
			Location:           "Assembly Line A",
			Latitude:           40.7128,
			Longitude:          -74.006,
			Priority:           domain.ReportPriorityHigh,
			Status:             domain.ReportStatusInProgress,
			AssignedTechnician: &john,
			Timestamp:          now.Add(-2 * time.Hour),
			CreatedAt:          now.Add(-5 * time.Hour),
			UpdatedAt:          now.Add(-2 * time.Hour),
		},
		{
			ID:          "2",
			Title:       "Hydraulic Pump Leak",
			Description: "Detected oil leak from main hydraulic pump",
			Location:    "Warehouse B",
			Latitude:    40.7135,
			Longitude:   -74.0022,
			Priority:    domain.ReportPriorityCritical,
			Status:      domain.ReportStatusNew,
			Timestamp:   now.Add(-30 * time.Minute),
			CreatedAt:   now.Add(-30 * time.Hour),
			UpdatedAt:   now.Add(-30 * time.Minute),
		},
		{
			ID:          "3",
			Title:       "Electrical Panel Fault",
			Description: "Breaker keeps tripping on Panel C, possible short circuit",
			Location:    "Control Room",
			Latitude:    40.712,
			Longitude:   -74.0055,
			Priority:    domain.ReportPriorityMedium,
			Status:      domain.ReportStatusNew,
			Timestamp:   now.Add(-15 * time.Minute),
			CreatedAt:   now.Add(-15 * time.Hour),
			UpdatedAt:   now.Add(-15 * time.Minute),
		},
		{
			ID:                 "4",
			Title:              "Sensor Calibration Error",
			Description:        "Temperature sensor reading inconsistencies",
			Location:           "Production Line C",
			Latitude:           40.714,
			Longitude:          -74.008,
			Priority:           domain.ReportPriorityLow,
			Status:             domain.ReportStatusResolved,
			AssignedTechnician: &sarah,
			Timestamp:          now.Add(-8 * time.Hour),
			CreatedAt:          now.Add(-24 * time.Hour),
			UpdatedAt:          now.Add(-8 * time.Hour),
		},
	}
}
