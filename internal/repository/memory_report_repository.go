package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

type reportEntry struct {
	mu      sync.Mutex
	report  domain.Report
	removed bool
}

type memoryReportRepository struct {
	mu      sync.RWMutex
	entries map[string]*reportEntry
}

// NewMemoryReportRepository returns a process-local report store.
func NewMemoryReportRepository() ReportRepository {
	return &memoryReportRepository{entries: make(map[string]*reportEntry)}
}

func (r *memoryReportRepository) Create(ctx context.Context, report *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[report.ID]; exists {
		return ErrReportExists
	}
	r.entries[report.ID] = &reportEntry{report: report.Clone()}
	return nil
}

func (r *memoryReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := r.lookup(id)
	if entry == nil {
		return nil, ErrReportNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return nil, ErrReportNotFound
	}
	report := entry.report.Clone()
	return &report, nil
}

func (r *memoryReportRepository) Update(ctx context.Context, id string, mutate ReportMutation) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := r.lookup(id)
	if entry == nil {
		return nil, ErrReportNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return nil, ErrReportNotFound
	}

	working := entry.report.Clone()
	if mutate != nil {
		if err := mutate(&working); err != nil {
			return nil, err
		}
	}
	// the id is immutable whatever the mutation did
	working.ID = entry.report.ID
	entry.report = working

	updated := working.Clone()
	return &updated, nil
}

func (r *memoryReportRepository) Delete(ctx context.Context, id string, guard ReportGuard) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	entry := r.lookup(id)
	if entry == nil {
		return false, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return false, nil
	}
	if guard != nil {
		current := entry.report.Clone()
		if err := guard(&current); err != nil {
			return false, err
		}
	}
	entry.removed = true

	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	return true, nil
}

func (r *memoryReportRepository) List(ctx context.Context) ([]domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := r.snapshot()
	reports := make([]domain.Report, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if !entry.removed {
			reports = append(reports, entry.report.Clone())
		}
		entry.mu.Unlock()
	}
	// map order is random; id breaks timestamp ties so listings are repeatable
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].Timestamp.Equal(reports[j].Timestamp) {
			return reports[i].Timestamp.After(reports[j].Timestamp)
		}
		return reports[i].ID < reports[j].ID
	})
	return reports, nil
}

func (r *memoryReportRepository) Stats(ctx context.Context) (domain.ReportStats, error) {
	var stats domain.ReportStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	for _, entry := range r.snapshot() {
		entry.mu.Lock()
		if !entry.removed {
			stats.Add(entry.report.Status)
		}
		entry.mu.Unlock()
	}
	return stats, nil
}

func (r *memoryReportRepository) lookup(id string) *reportEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

func (r *memoryReportRepository) snapshot() []*reportEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]*reportEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}
