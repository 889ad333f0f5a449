package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/repository"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

func TestHistoryFollowsLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	dispatcher := events.NewInMemoryDispatcher()
	reports := repository.NewMemoryReportRepository()
	deps := ReportDependencies{ReportRepo: reports, Dispatcher: dispatcher, Logger: zap.NewNop(), Now: clock}

	history := NewHistoryService(repository.NewMemoryReportHistoryRepository(), reports, zap.NewNop())
	history.RegisterHandlers(dispatcher)

	ctx := context.Background()
	report, err := NewReportService(deps).CreateReport(ctx, worker, leakInput())
	require.NoError(t, err)
	lifecycle := NewLifecycleService(deps)
	_, err = lifecycle.Claim(ctx, alice, report.ID)
	require.NoError(t, err)
	_, err = lifecycle.Reassign(ctx, alice, report.ID, "Bob")
	require.NoError(t, err)
	_, err = lifecycle.Resolve(ctx, bob, report.ID)
	require.NoError(t, err)

	entries, err := history.ListHistory(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, domain.ChangeTypeCreated, entries[0].ChangeType)
	assert.Equal(t, "Mike Wilson", entries[0].ChangedByName)

	assert.Equal(t, domain.ChangeTypeStatus, entries[1].ChangeType)
	assert.Equal(t, domain.ReportStatusNew, entries[1].OldValue["status"])
	assert.Equal(t, domain.ReportStatusInProgress, entries[1].NewValue["status"])
	assert.Equal(t, "Alice", entries[1].NewValue["assignedTechnician"])

	assert.Equal(t, domain.ChangeTypeAssignee, entries[2].ChangeType)
	assert.Equal(t, "Alice", entries[2].OldValue["assignedTechnician"])
	assert.Equal(t, "Bob", entries[2].NewValue["assignedTechnician"])

	assert.Equal(t, domain.ReportStatusResolved, entries[3].NewValue["status"])
	assert.Equal(t, "bob", entries[3].ChangedByID)
}

func TestHistoryOfMissingReport(t *testing.T) {
	history := NewHistoryService(repository.NewMemoryReportHistoryRepository(), repository.NewMemoryReportRepository(), nil)
	_, err := history.ListHistory(context.Background(), "ghost")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
