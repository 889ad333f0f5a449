package service

import (
	"context"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/query"
	"github.com/spec-kit/factory-report-service/internal/repository"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

var (
	alice  = &domain.User{ID: "alice", Name: "Alice", Role: domain.RoleTechnician}
	bob    = &domain.User{ID: "bob", Name: "Bob", Role: domain.RoleTechnician}
	worker = &domain.User{ID: "mike", Name: "Mike Wilson", Role: domain.RoleWorker}
)

type fixture struct {
	repo      repository.ReportRepository
	reports   *ReportService
	lifecycle *LifecycleService
	events    *[]events.Event
	clock     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &now
	var mu sync.Mutex
	var published []events.Event

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			published = append(published, e)
			return nil
		})
	}

	deps := ReportDependencies{
		ReportRepo: repository.NewMemoryReportRepository(),
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return *clock },
	}
	return &fixture{
		repo:      deps.ReportRepo,
		reports:   NewReportService(deps),
		lifecycle: NewLifecycleService(deps),
		events:    &published,
		clock:     clock,
	}
}

func floatPtr(v float64) *float64 { return &v }

func leakInput() CreateReportInput {
	return CreateReportInput{
		Title:       "Leak",
		Description: "oil leak",
		Location:    "Bay 3",
		Latitude:    floatPtr(1.0),
		Longitude:   floatPtr(2.0),
		Priority:    domain.ReportPriorityCritical,
	}
}

func (f *fixture) create(t *testing.T) *domain.Report {
	t.Helper()
	report, err := f.reports.CreateReport(context.Background(), worker, leakInput())
	require.NoError(t, err)
	return report
}

func (f *fixture) eventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(*f.events))
	for _, e := range *f.events {
		types = append(types, e.Type)
	}
	return types
}

func TestEndToEndLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t)
	assert.Equal(t, domain.ReportStatusNew, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.AssignedTechnician)
	assert.True(t, created.CreatedAt.Equal(created.Timestamp))
	assert.True(t, created.UpdatedAt.Equal(created.Timestamp))

	claimed, err := f.lifecycle.Claim(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssignedTechnician)
	assert.Equal(t, "Alice", *claimed.AssignedTechnician)

	resolved, err := f.lifecycle.Resolve(ctx, worker, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, resolved.Status)

	require.NoError(t, f.lifecycle.Delete(ctx, alice, created.ID))
	_, err = f.reports.GetReport(ctx, created.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	assert.Equal(t, []events.EventType{
		events.EventReportCreated,
		events.EventReportClaimed,
		events.EventReportResolved,
		events.EventReportDeleted,
	}, f.eventTypes())
	assert.Equal(t, "Alice", (*f.events)[1].Actor.Name)
}

func TestCreateReportValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.reports.CreateReport(context.Background(), worker, CreateReportInput{Title: "  "})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, []string{"title", "description", "location", "latitude", "longitude", "priority"}, domainErr.Details["fields"])

	input := leakInput()
	input.Priority = "Urgent"
	_, err = f.reports.CreateReport(context.Background(), worker, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	stats, err := f.reports.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestCreateReportAcceptsZeroCoordinates(t *testing.T) {
	f := newFixture(t)
	input := leakInput()
	input.Latitude = floatPtr(0)
	input.Longitude = floatPtr(0)

	report, err := f.reports.CreateReport(context.Background(), worker, input)
	require.NoError(t, err)
	assert.Zero(t, report.Latitude)
}

func TestCreateReportIDsAreUnique(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		r := f.create(t)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestMissingReportOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reports.GetReport(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.lifecycle.Claim(ctx, alice, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.lifecycle.Resolve(ctx, alice, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	err = f.lifecycle.Delete(ctx, alice, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestClaimRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t)

	_, err := f.lifecycle.Claim(ctx, worker, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.lifecycle.Claim(ctx, nil, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = f.lifecycle.Claim(ctx, alice, report.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Claim(ctx, bob, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	current, err := f.reports.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *current.AssignedTechnician)
}

func TestResolveRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t)

	_, err := f.lifecycle.Resolve(ctx, alice, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = f.lifecycle.Claim(ctx, alice, report.ID)
	require.NoError(t, err)
	*f.clock = f.clock.Add(time.Hour)

	resolved, err := f.lifecycle.Resolve(ctx, worker, report.ID)
	require.NoError(t, err)
	assert.Equal(t, f.clock.UTC(), resolved.UpdatedAt.UTC())
	assert.True(t, resolved.Timestamp.Before(resolved.UpdatedAt))

	_, err = f.lifecycle.Resolve(ctx, alice, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestReassignRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t)

	_, err := f.lifecycle.Reassign(ctx, alice, report.ID, "Bob")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = f.lifecycle.Claim(ctx, alice, report.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Reassign(ctx, worker, report.ID, "Bob")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.lifecycle.Reassign(ctx, alice, report.ID, "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	updated, err := f.lifecycle.Reassign(ctx, alice, report.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInProgress, updated.Status)
	assert.Equal(t, "Bob", *updated.AssignedTechnician)

	last := (*f.events)[len(*f.events)-1]
	assert.Equal(t, events.EventReportReassigned, last.Type)
	payload := last.Payload.(events.ReportReassignedPayload)
	assert.Equal(t, "Alice", *payload.OldTechnician)
	assert.Equal(t, "Bob", payload.NewTechnician)
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t)

	err := f.lifecycle.Delete(ctx, alice, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = f.lifecycle.Claim(ctx, alice, report.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Resolve(ctx, alice, report.ID)
	require.NoError(t, err)

	err = f.lifecycle.Delete(ctx, worker, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	require.NoError(t, f.lifecycle.Delete(ctx, alice, report.ID))
	err = f.lifecycle.Delete(ctx, alice, report.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestApplyUpdateMapsToCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t)

	inProgress := domain.ReportStatusInProgress
	resolved := domain.ReportStatusResolved
	reopened := domain.ReportStatusNew
	bogus := domain.ReportStatus("Closed")
	carol := "Carol"

	_, err := f.lifecycle.ApplyUpdate(ctx, alice, report.ID, UpdateReportInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.lifecycle.ApplyUpdate(ctx, alice, report.ID, UpdateReportInput{Status: &bogus})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	updated, err := f.lifecycle.ApplyUpdate(ctx, alice, report.ID, UpdateReportInput{Status: &inProgress, AssignedTechnician: &carol})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *updated.AssignedTechnician)

	updated, err = f.lifecycle.ApplyUpdate(ctx, alice, report.ID, UpdateReportInput{AssignedTechnician: &carol})
	require.NoError(t, err)
	assert.Equal(t, "Carol", *updated.AssignedTechnician)

	_, err = f.lifecycle.ApplyUpdate(ctx, alice, report.ID, UpdateReportInput{Status: &reopened})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	updated, err = f.lifecycle.ApplyUpdate(ctx, worker, report.ID, UpdateReportInput{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, updated.Status)
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	report := f.create(t)

	techs := make([]*domain.User, 16)
	for i := range techs {
		techs[i] = &domain.User{ID: "t", Name: "Tech", Role: domain.RoleTechnician}
	}

	var wg sync.WaitGroup
	results := make(chan error, len(techs))
	for _, tech := range techs {
		wg.Add(1)
		go func(actor *domain.User) {
			defer wg.Done()
			_, err := f.lifecycle.Claim(context.Background(), actor, report.ID)
			results <- err
		}(tech)
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.HasCode(err, apperrors.CodeInvalidState):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, len(techs)-1, conflicts)
}

func TestListReportsAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.reports.SeedSampleReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, seeded)

	again, err := f.reports.SeedSampleReports(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	stats, err := f.reports.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStats{Total: 4, New: 2, InProgress: 1, Resolved: 1}, stats)

	status := domain.ReportStatusNew
	newOnes, err := f.reports.ListReports(ctx, query.Filter{Status: &status}, query.Sort{})
	require.NoError(t, err)
	require.Len(t, newOnes, 2)
	assert.Equal(t, "3", newOnes[0].ID)
	assert.Equal(t, "2", newOnes[1].ID)

	byPriority, err := f.reports.ListReports(ctx, query.Filter{}, query.Sort{Key: query.SortByPriority})
	require.NoError(t, err)
	ids := []string{}
	for _, r := range byPriority {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"2", "1", "3", "4"}, ids)

	warehouse, err := f.reports.ListReports(ctx, query.Filter{LocationContains: "warehouse"}, query.Sort{})
	require.NoError(t, err)
	require.Len(t, warehouse, 1)
	assert.Equal(t, "Hydraulic Pump Leak", warehouse[0].Title)
}

func TestSeedSkipsNonEmptyStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.reports.SeedSampleReports(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, seeded)

	require.NoError(t, f.lifecycle.Delete(ctx, alice, "4"))

	again, err := f.reports.SeedSampleReports(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = f.reports.GetReport(ctx, "4")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	stats, err := f.reports.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
}

func TestSeedSkipsStoreWithUserReports(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	seeded, err := f.reports.SeedSampleReports(context.Background())
	require.NoError(t, err)
	assert.Zero(t, seeded)
}

func TestSampleReportTimeline(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, r := range sampleReports(now) {
		assert.False(t, r.CreatedAt.After(r.Timestamp), r.ID)
		assert.False(t, r.Timestamp.After(r.UpdatedAt), r.ID)
	}
	samples := sampleReports(now)
	assert.Equal(t, now.Add(-30*time.Hour), samples[1].CreatedAt)
	assert.Equal(t, now.Add(-15*time.Hour), samples[2].CreatedAt)
}

// borrowedID mimics a route param that aliases a reused request buffer.
func borrowedID(id string) (string, func()) {
	buf := []byte(id)
	return unsafe.String(&buf[0], len(buf)), func() {
		for i := range buf {
			buf[i] = 'x'
		}
	}
}

func TestEventsKeepReportIDAfterRequestBufferReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t)

	_, err := f.lifecycle.Claim(ctx, alice, report.ID)
	require.NoError(t, err)

	id, scribble := borrowedID(report.ID)
	_, err = f.lifecycle.Reassign(ctx, alice, id, "Bob")
	require.NoError(t, err)
	scribble()

	_, err = f.lifecycle.Resolve(ctx, bob, report.ID)
	require.NoError(t, err)

	id, scribble = borrowedID(report.ID)
	require.NoError(t, f.lifecycle.Delete(ctx, bob, id))
	scribble()

	for _, e := range *f.events {
		assert.Equal(t, report.ID, e.ReportID, string(e.Type))
	}
}
