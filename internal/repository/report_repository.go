package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

var (
	// ErrReportNotFound is returned when no report has the requested id.
	ErrReportNotFound = errors.New("report not found")
	// ErrReportExists is returned when creating a report whose id is taken.
	ErrReportExists = errors.New("report already exists")
)

// ReportMutation edits a report in place. Returning an error aborts the write.
type ReportMutation func(report *domain.Report) error

// ReportGuard inspects a report before it is deleted. Returning an error keeps it.
type ReportGuard func(report *domain.Report) error

// ReportRepository encapsulates report persistence.
//
// Update and Delete run their callback while holding exclusive access to the
// record, so a check-and-set performed in the callback cannot interleave with
// another writer of the same id.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	Update(ctx context.Context, id string, mutate ReportMutation) (*domain.Report, error)
	Delete(ctx context.Context, id string, guard ReportGuard) (bool, error)
	List(ctx context.Context) ([]domain.Report, error)
	Stats(ctx context.Context) (domain.ReportStats, error)
}
