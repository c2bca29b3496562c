package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
	"github.com/clinicdesk/registry/pkg/types"
)

func testCleanupConfig() config.CleanupConfig {
	return config.CleanupConfig{
		Enabled:          true,
		Weekday:          0, // Sunday
		StartHour:        0,
		EndHour:          6,
		CheckIntervalMin: 60,
	}
}

func newTestRetentionJob(repo *MockSchedulingRepository) *RetentionJob {
	return NewRetentionJob(repo, testCleanupConfig(), logger.New("error"), monitoring.NewMetricsCollector("retention-test"))
}

// 2025-03-16 is a Sunday
func sundayAt(hour int) time.Time {
	return time.Date(2025, 3, 16, hour, 0, 0, 0, time.UTC)
}

func TestStaleSchedules_SelectsOnlyPastDates(t *testing.T) {
	today := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	schedules := []*types.Schedule{
		{ID: "old", WorkDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "today", WorkDate: time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)},
		{ID: "future", WorkDate: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
	}

	stale := StaleSchedules(schedules, today)

	assert.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}

func TestStaleSchedules_Idempotent(t *testing.T) {
	today := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	schedules := []*types.Schedule{
		{ID: "today", WorkDate: time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)},
	}

	assert.Empty(t, StaleSchedules(schedules, today))
	assert.Empty(t, StaleSchedules(schedules, today))
}

func TestRetentionJob_RunsInsideGate(t *testing.T) {
	repo := new(MockSchedulingRepository)
	job := newTestRetentionJob(repo)
	job.SetClock(func() time.Time { return sundayAt(1) })

	repo.On("PurgeSchedulesBefore", types.DateOf(sundayAt(1))).Return([]string{"s1"}, nil).Once()

	job.Tick()

	repo.AssertExpectations(t)
}

func TestRetentionJob_SkipsOutsideWeekday(t *testing.T) {
	repo := new(MockSchedulingRepository)
	job := newTestRetentionJob(repo)
	// 2025-03-17 is a Monday
	job.SetClock(func() time.Time { return time.Date(2025, 3, 17, 1, 0, 0, 0, time.UTC) })

	job.Tick()

	repo.AssertNotCalled(t, "PurgeSchedulesBefore", mock.Anything)
}

func TestRetentionJob_SkipsOutsideHourWindow(t *testing.T) {
	repo := new(MockSchedulingRepository)
	job := newTestRetentionJob(repo)
	job.SetClock(func() time.Time { return sundayAt(7) })

	job.Tick()

	repo.AssertNotCalled(t, "PurgeSchedulesBefore", mock.Anything)
}

func TestRetentionJob_AtMostOncePerDay(t *testing.T) {
	repo := new(MockSchedulingRepository)
	job := newTestRetentionJob(repo)

	hour := 1
	job.SetClock(func() time.Time { return sundayAt(hour) })
	repo.On("PurgeSchedulesBefore", mock.Anything).Return([]string{}, nil).Once()

	job.Tick()
	hour = 2
	job.Tick()
	hour = 5
	job.Tick()

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "PurgeSchedulesBefore", 1)
}

func TestRetentionJob_FailureDoesNotCountAsRun(t *testing.T) {
	repo := new(MockSchedulingRepository)
	job := newTestRetentionJob(repo)
	job.SetClock(func() time.Time { return sundayAt(1) })

	repo.On("PurgeSchedulesBefore", mock.Anything).Return(nil, errors.New("db down")).Once()
	repo.On("PurgeSchedulesBefore", mock.Anything).Return([]string{"s1"}, nil).Once()

	job.Tick() // fails, stays eligible
	job.Tick() // retries and succeeds

	repo.AssertNumberOfCalls(t, "PurgeSchedulesBefore", 2)
}

func TestRetentionJob_RunsAgainNextWeek(t *testing.T) {
	repo := new(MockSchedulingRepository)
	job := newTestRetentionJob(repo)

	now := sundayAt(1)
	job.SetClock(func() time.Time { return now })
	repo.On("PurgeSchedulesBefore", mock.Anything).Return([]string{}, nil).Twice()

	job.Tick()
	now = now.AddDate(0, 0, 7)
	job.Tick()

	repo.AssertNumberOfCalls(t, "PurgeSchedulesBefore", 2)
}
