package scheduling

import (
	"time"

	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
	"github.com/clinicdesk/registry/pkg/types"
)

// IsUpcoming reports whether an appointment should surface in the reminder
// feed at the given instant: still pending, not yet started, and starting
// within the lookahead window. An appointment starting exactly at
// now+lookahead is included; one starting exactly now is not, it is already
// underway.
func IsUpcoming(apt *types.Appointment, now time.Time, lookahead time.Duration) bool {
	if apt.Status != string(types.StatusPending) {
		return false
	}
	if !apt.StartTime.After(now) {
		return false
	}
	return !apt.StartTime.After(now.Add(lookahead))
}

// FilterUpcoming returns the appointments due for a reminder, preserving
// input order
func FilterUpcoming(appointments []*types.Appointment, now time.Time, lookahead time.Duration) []*types.Appointment {
	upcoming := make([]*types.Appointment, 0)
	for _, apt := range appointments {
		if IsUpcoming(apt, now, lookahead) {
			upcoming = append(upcoming, apt)
		}
	}
	return upcoming
}

// ReminderSweep fetches pending appointments inside the lookahead window and
// dispatches one reminder per appointment. Delivery failures are logged and
// do not stop the sweep.
func ReminderSweep(repo interfaces.SchedulingRepository, notifier interfaces.Notifier, log *logger.Logger, metrics *monitoring.MetricsCollector, now time.Time, lookahead time.Duration) error {
	pending, err := repo.GetPendingAppointmentsBetween(now, now.Add(lookahead))
	if err != nil {
		return err
	}

	for _, apt := range FilterUpcoming(pending, now, lookahead) {
		if err := notifier.SendAppointmentReminder(apt); err != nil {
			log.WithComponent("reminders").WithError(err).WithField("appointment_id", apt.ID).
				Warn("Failed to deliver appointment reminder")
			metrics.RecordReminder("failed")
			continue
		}
		metrics.RecordReminder("sent")
	}
	return nil
}

// ReminderJob runs ReminderSweep on a fixed interval so reminders go out
// without anyone polling the upcoming feed. Sweep failures are logged and
// retried on the next tick.
type ReminderJob struct {
	repo     interfaces.SchedulingRepository
	notifier interfaces.Notifier
	cfg      config.SchedulingConfig
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector
	now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReminderJob creates a reminder job. The clock defaults to time.Now.
func NewReminderJob(repo interfaces.SchedulingRepository, notifier interfaces.Notifier, cfg config.SchedulingConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *ReminderJob {
	return &ReminderJob{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		metrics:  metrics,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetClock overrides the job's clock; used by tests
func (j *ReminderJob) SetClock(now func() time.Time) {
	j.now = now
}

// Start runs the sweep loop until Stop is called
func (j *ReminderJob) Start() {
	go j.run()
}

// Stop signals the loop to exit and waits for it to finish
func (j *ReminderJob) Stop() {
	close(j.stopCh)
	<-j.doneCh
}

func (j *ReminderJob) run() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.cfg.ReminderSweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Tick()
		case <-j.stopCh:
			return
		}
	}
}

// Tick performs one sweep. Exposed so tests can drive the job without real
// time.
func (j *ReminderJob) Tick() {
	if err := ReminderSweep(j.repo, j.notifier, j.logger, j.metrics, j.now(), j.cfg.ReminderLookahead()); err != nil {
		j.logger.WithComponent("reminders").WithError(err).Warn("Reminder sweep failed, will retry on next tick")
		j.metrics.RecordSystemError("reminder_sweep_failed", "reminders")
	}
}
