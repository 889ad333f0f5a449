package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

const reportColumns = `id, title, description, location, latitude, longitude, priority, status,
               assigned_technician, reported_at, created_at, updated_at`

const uniqueViolation = "23505"

type postgresReportRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReportRepository instantiates a pgx backed report store.
func NewPostgresReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &postgresReportRepository{pool: pool}
}

func (r *postgresReportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (` + reportColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query, reportArgs(report)...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrReportExists
	}
	return err
}

func (r *postgresReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE id=$1`
	return fetchReport(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresReportRepository) Update(ctx context.Context, id string, mutate ReportMutation) (*domain.Report, error) {
	var updated *domain.Report
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const selectQuery = `SELECT ` + reportColumns + ` FROM reports WHERE id=$1 FOR UPDATE`
		report, err := fetchReport(tx.QueryRow(ctx, selectQuery, id))
		if err != nil {
			return err
		}
		if mutate != nil {
			if err := mutate(report); err != nil {
				return err
			}
		}
		report.ID = id

		const updateQuery = `
            UPDATE reports SET title=$2, description=$3, location=$4, latitude=$5, longitude=$6,
                priority=$7, status=$8, assigned_technician=$9, reported_at=$10, created_at=$11, updated_at=$12
            WHERE id=$1`
		if _, err := tx.Exec(ctx, updateQuery, reportArgs(report)...); err != nil {
			return err
		}
		updated = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *postgresReportRepository) Delete(ctx context.Context, id string, guard ReportGuard) (bool, error) {
	deleted := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const selectQuery = `SELECT ` + reportColumns + ` FROM reports WHERE id=$1 FOR UPDATE`
		report, err := fetchReport(tx.QueryRow(ctx, selectQuery, id))
		if errors.Is(err, ErrReportNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(report); err != nil {
				return err
			}
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
		if err != nil {
			return err
		}
		deleted = cmd.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *postgresReportRepository) List(ctx context.Context) ([]domain.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports ORDER BY reported_at DESC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []domain.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func (r *postgresReportRepository) Stats(ctx context.Context) (domain.ReportStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status=$1),
               COUNT(*) FILTER (WHERE status=$2),
               COUNT(*) FILTER (WHERE status=$3)
        FROM reports`
	var stats domain.ReportStats
	err := r.pool.QueryRow(ctx, query,
		domain.ReportStatusNew,
		domain.ReportStatusInProgress,
		domain.ReportStatusResolved,
	).Scan(&stats.Total, &stats.New, &stats.InProgress, &stats.Resolved)
	return stats, err
}

func reportArgs(report *domain.Report) []any {
	return []any{
		report.ID,
		report.Title,
		report.Description,
		report.Location,
		report.Latitude,
		report.Longitude,
		report.Priority,
		report.Status,
		report.AssignedTechnician,
		report.Timestamp,
		report.CreatedAt,
		report.UpdatedAt,
	}
}

func fetchReport(row pgx.Row) (*domain.Report, error) {
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	return report, err
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.Title,
		&report.Description,
		&report.Location,
		&report.Latitude,
		&report.Longitude,
		&report.Priority,
		&report.Status,
		&report.AssignedTechnician,
		&report.Timestamp,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}
