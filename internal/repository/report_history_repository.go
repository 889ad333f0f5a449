package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

// ReportHistoryRepository stores audit entries. Entries outlive the report
// they describe.
type ReportHistoryRepository interface {
	Create(ctx context.Context, history *domain.ReportHistory) error
	ListByReport(ctx context.Context, reportID string) ([]domain.ReportHistory, error)
}

type memoryReportHistoryRepository struct {
	mu       sync.RWMutex
	byReport map[string][]domain.ReportHistory
}

// NewMemoryReportHistoryRepository keeps the audit trail in process memory.
func NewMemoryReportHistoryRepository() ReportHistoryRepository {
	return &memoryReportHistoryRepository{byReport: make(map[string][]domain.ReportHistory)}
}

func (r *memoryReportHistoryRepository) Create(ctx context.Context, history *domain.ReportHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byReport[history.ReportID] = append(r.byReport[history.ReportID], *history)
	return nil
}

func (r *memoryReportHistoryRepository) ListByReport(ctx context.Context, reportID string) ([]domain.ReportHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	result := append([]domain.ReportHistory{}, r.byReport[reportID]...)
	r.mu.RUnlock()
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type postgresReportHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReportHistoryRepository builds repository.
func NewPostgresReportHistoryRepository(pool *pgxpool.Pool) ReportHistoryRepository {
	return &postgresReportHistoryRepository{pool: pool}
}

func (r *postgresReportHistoryRepository) Create(ctx context.Context, history *domain.ReportHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO report_history (id, report_id, changed_by_id, changed_by_name, change_type, old_value, new_value, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		history.ID,
		history.ReportID,
		history.ChangedByID,
		history.ChangedByName,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
		history.CreatedAt,
	)
	return err
}

func (r *postgresReportHistoryRepository) ListByReport(ctx context.Context, reportID string) ([]domain.ReportHistory, error) {
	const query = `
        SELECT id, report_id, changed_by_id, changed_by_name, change_type, old_value, new_value, created_at
        FROM report_history WHERE report_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ReportHistory{}
	for rows.Next() {
		var history domain.ReportHistory
		if err := rows.Scan(
			&history.ID,
			&history.ReportID,
			&history.ChangedByID,
			&history.ChangedByName,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
