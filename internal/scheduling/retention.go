package scheduling

import (
	"time"

	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
	"github.com/clinicdesk/registry/pkg/types"
)

// StaleSchedules selects the schedules whose work date predates today.
// A schedule for today stays until tomorrow. The selection is pure so both
// the purge endpoint and the background job share one definition of stale.
func StaleSchedules(schedules []*types.Schedule, today time.Time) []*types.Schedule {
	cutoff := types.DateOf(today)
	stale := make([]*types.Schedule, 0)
	for _, s := range schedules {
		if types.DateOf(s.WorkDate).Before(cutoff) {
			stale = append(stale, s)
		}
	}
	return stale
}

// RetentionJob removes stale schedules on a weekly cadence. It wakes on a
// fixed interval, and actually purges only inside the configured weekday and
// hour window, at most once per calendar day. Failures are logged and retried
// on the next tick; a failed run never counts as done for the day.
type RetentionJob struct {
	repo    interfaces.SchedulingRepository
	cfg     config.CleanupConfig
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	now     func() time.Time

	lastRun time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRetentionJob creates a retention job. The clock defaults to time.Now.
func NewRetentionJob(repo interfaces.SchedulingRepository, cfg config.CleanupConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *RetentionJob {
	return &RetentionJob{
		repo:    repo,
		cfg:     cfg,
		logger:  log,
		metrics: metrics,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// SetClock overrides the job's clock; used by tests
func (j *RetentionJob) SetClock(now func() time.Time) {
	j.now = now
}

// Start runs the retention loop until Stop is called
func (j *RetentionJob) Start() {
	go j.run()
}

// Stop signals the loop to exit and waits for it to finish
func (j *RetentionJob) Stop() {
	close(j.stopCh)
	<-j.doneCh
}

func (j *RetentionJob) run() {
	defer close(j.doneCh)

	if !j.cfg.Enabled {
		j.logger.WithComponent("retention").Info("Schedule retention disabled by configuration")
		return
	}

	ticker := time.NewTicker(j.cfg.CheckInterval())
	defer ticker.Stop()

	j.Tick()
	for {
		select {
		case <-ticker.C:
			j.Tick()
		case <-j.stopCh:
			return
		}
	}
}

// Tick performs one gate evaluation and, when the gate is open, one purge.
// Exposed so tests can drive the job without real time.
func (j *RetentionJob) Tick() {
	now := j.now()
	if !j.gateOpen(now) {
		return
	}
	if types.SameDate(j.lastRun, now) {
		return
	}

	removed, err := j.Purge(now)
	if err != nil {
		j.logger.WithComponent("retention").WithError(err).Warn("Scheduled purge failed, will retry on next tick")
		j.metrics.RecordSystemError("retention_purge_failed", "retention")
		return
	}

	j.lastRun = now
	j.logger.WithComponent("retention").WithFields(map[string]interface{}{
		"removed": len(removed),
	}).Info("Stale schedules purged")
	j.metrics.RecordSchedulesPurged("scheduled", len(removed))
}

// Purge removes every schedule dated before now's calendar date and returns
// the removed schedule IDs. Running it twice on the same day is harmless;
// the second run finds nothing to remove.
func (j *RetentionJob) Purge(now time.Time) ([]string, error) {
	return j.repo.PurgeSchedulesBefore(types.DateOf(now))
}

func (j *RetentionJob) gateOpen(now time.Time) bool {
	if now.Weekday() != time.Weekday(j.cfg.Weekday) {
		return false
	}
	return now.Hour() >= j.cfg.StartHour && now.Hour() < j.cfg.EndHour
}
