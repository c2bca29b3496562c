package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
	"github.com/clinicdesk/registry/pkg/types"
)

// Service implements the SchedulingService interface
type Service struct {
	repo     interfaces.SchedulingRepository
	notifier interfaces.Notifier
	cfg      config.SchedulingConfig
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector
	now      func() time.Time
}

// NewService creates a new scheduling service
func NewService(repo interfaces.SchedulingRepository, notifier interfaces.Notifier, cfg config.SchedulingConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetClock overrides the service clock; used by tests
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateAppointment books a new appointment after running the conflict checks
func (s *Service) CreateAppointment(apt *types.Appointment, userID string) (*types.Appointment, error) {
	if apt.PatientID == "" || apt.DoctorID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "patient_id and doctor_id are required", nil)
	}
	if apt.EndTime.IsZero() {
		apt.EndTime = apt.StartTime.Add(s.cfg.SlotLength())
	}
	if !apt.EndTime.After(apt.StartTime) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "end_time must be after start_time", nil)
	}
	if apt.Purpose != "" && !types.ValidPurpose(apt.Purpose) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, fmt.Sprintf("unknown appointment purpose: %s", apt.Purpose), nil)
	}

	if err := s.checkConflicts(BookingRequest{
		DoctorID:  apt.DoctorID,
		PatientID: apt.PatientID,
		Start:     apt.StartTime,
		End:       apt.EndTime,
	}); err != nil {
		return nil, err
	}

	apt.ID = uuid.New().String()
	apt.Status = string(types.StatusPending)
	apt.CreatedAt = s.now()
	apt.UpdatedAt = apt.CreatedAt

	if err := s.repo.CreateAppointment(apt); err != nil {
		if errors.Is(err, ErrOverlapConstraint) {
			s.metrics.RecordBookingConflict(string(ConflictDoctorBusy))
			return nil, types.NewConflictError(string(ConflictDoctorBusy), ConflictDoctorBusy.Message(), nil)
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create appointment", err)
	}

	s.metrics.RecordBooking(apt.Purpose)
	s.logger.Audit(userID, "appointment_created", apt.ID, true, map[string]interface{}{
		"doctor_id":  apt.DoctorID,
		"patient_id": apt.PatientID,
		"start_time": apt.StartTime,
	})

	if s.notifier != nil {
		if err := s.notifier.SendAppointmentConfirmation(apt); err != nil {
			s.logger.WithError(err).WithField("appointment_id", apt.ID).
				Warn("Failed to send booking confirmation")
		}
	}

	return apt, nil
}

// GetAppointment retrieves a single appointment
func (s *Service) GetAppointment(aptID string) (*types.Appointment, error) {
	apt, err := s.repo.GetAppointmentByID(aptID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("appointment %s not found", aptID))
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get appointment", err)
	}
	return apt, nil
}

// MoveAppointment reschedules an appointment to a new start, preserving its
// duration. The appointment's current time does not count against the new
// interval, so shifting within its own window works.
func (s *Service) MoveAppointment(aptID string, newStart time.Time, userID string) (*types.Appointment, error) {
	apt, err := s.GetAppointment(aptID)
	if err != nil {
		return nil, err
	}
	if apt.Status == string(types.StatusCancelled) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "cannot move a cancelled appointment", nil)
	}

	duration := apt.EndTime.Sub(apt.StartTime)
	newEnd := newStart.Add(duration)

	if err := s.checkConflicts(BookingRequest{
		DoctorID:             apt.DoctorID,
		PatientID:            apt.PatientID,
		Start:                newStart,
		End:                  newEnd,
		ExcludeAppointmentID: apt.ID,
	}); err != nil {
		return nil, err
	}

	updates := &types.AppointmentUpdates{
		StartTime: &newStart,
		EndTime:   &newEnd,
	}
	if err := s.repo.UpdateAppointment(aptID, updates); err != nil {
		if errors.Is(err, ErrOverlapConstraint) {
			s.metrics.RecordBookingConflict(string(ConflictDoctorBusy))
			return nil, types.NewConflictError(string(ConflictDoctorBusy), ConflictDoctorBusy.Message(), nil)
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to move appointment", err)
	}

	apt.StartTime = newStart
	apt.EndTime = newEnd
	s.logger.Audit(userID, "appointment_moved", aptID, true, map[string]interface{}{
		"new_start": newStart,
	})

	if s.notifier != nil {
		if err := s.notifier.SendAppointmentChange(apt, "moved"); err != nil {
			s.logger.WithError(err).WithField("appointment_id", aptID).
				Warn("Failed to send move notification")
		}
	}

	return apt, nil
}

// RepeatAppointment books a follow-up visit copying the doctor and patient of
// an existing appointment. The new visit gets its own conflict validation.
func (s *Service) RepeatAppointment(aptID string, start time.Time, purpose string, userID string) (*types.Appointment, error) {
	origin, err := s.GetAppointment(aptID)
	if err != nil {
		return nil, err
	}

	if purpose == "" {
		purpose = "repeat_visit"
	}

	repeat := &types.Appointment{
		PatientID: origin.PatientID,
		DoctorID:  origin.DoctorID,
		StartTime: start,
		EndTime:   start.Add(origin.EndTime.Sub(origin.StartTime)),
		Purpose:   purpose,
	}
	return s.CreateAppointment(repeat, userID)
}

// CancelAppointment marks an appointment cancelled. The slot it held becomes
// bookable immediately.
func (s *Service) CancelAppointment(aptID, userID string) error {
	return s.SetAppointmentStatus(aptID, string(types.StatusCancelled), userID)
}

// SetAppointmentStatus transitions an appointment to the given status
func (s *Service) SetAppointmentStatus(aptID, status, userID string) error {
	if !types.ValidStatus(status) {
		return types.NewValidationError(types.ErrCodeInvalidInput, fmt.Sprintf("unknown appointment status: %s", status), nil)
	}

	updates := &types.AppointmentUpdates{Status: &status}
	if err := s.repo.UpdateAppointment(aptID, updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("appointment %s not found", aptID))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to update appointment status", err)
	}

	s.logger.Audit(userID, "appointment_status_changed", aptID, true, map[string]interface{}{
		"status": status,
	})
	return nil
}

// DeleteAppointment removes an appointment record entirely. Cancellation is
// the usual path; deletion exists for administrative corrections.
func (s *Service) DeleteAppointment(aptID, userID string) error {
	if err := s.repo.DeleteAppointment(aptID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("appointment %s not found", aptID))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete appointment", err)
	}

	s.logger.Audit(userID, "appointment_deleted", aptID, true, nil)
	return nil
}

// GetAppointments retrieves appointments matching the given filters
func (s *Service) GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	if filters == nil {
		filters = &types.AppointmentFilters{}
	}
	appointments, err := s.repo.GetAppointments(filters)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to query appointments", err)
	}
	return appointments, nil
}

// CheckAvailability reports whether the given interval is bookable for the
// doctor
func (s *Service) CheckAvailability(doctorID string, slot *types.TimeSlot) (bool, error) {
	err := s.checkConflicts(BookingRequest{
		DoctorID: doctorID,
		Start:    slot.StartTime,
		End:      slot.EndTime,
	})
	if err == nil {
		return true, nil
	}
	var regErr *types.RegistryError
	if errors.As(err, &regErr) && regErr.Type == types.ErrorTypeConflict {
		return false, nil
	}
	return false, err
}

// GetAvailableSlots returns the doctor's free slots on the given date
func (s *Service) GetAvailableSlots(doctorID string, date time.Time) ([]*types.TimeSlot, error) {
	schedule, err := s.repo.GetScheduleForDate(doctorID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []*types.TimeSlot{}, nil
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get schedule", err)
	}
	if !schedule.IsAvailable {
		return []*types.TimeSlot{}, nil
	}

	appointments, err := s.repo.GetDoctorAppointmentsForDate(doctorID, date)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get appointments", err)
	}

	return FreeSlots(schedule, appointments, s.cfg.SlotLength()), nil
}

// CreateSchedule publishes a doctor's working window for one date
func (s *Service) CreateSchedule(schedule *types.Schedule, userID string) (*types.Schedule, error) {
	if schedule.DoctorID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "doctor_id is required", nil)
	}
	if !schedule.EndTime.After(schedule.StartTime) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "end_time must be after start_time", nil)
	}

	exists, err := s.repo.DoctorExists(schedule.DoctorID)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to check doctor", err)
	}
	if !exists {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor %s not found", schedule.DoctorID))
	}

	if _, err := s.repo.GetScheduleForDate(schedule.DoctorID, schedule.WorkDate); err == nil {
		return nil, types.NewConflictError(types.ErrCodeConflict, "a schedule for this doctor and date already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to check existing schedule", err)
	}

	schedule.ID = uuid.New().String()
	schedule.WorkDate = types.DateOf(schedule.StartTime)
	schedule.IsAvailable = true
	if err := s.repo.CreateSchedule(schedule); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create schedule", err)
	}

	s.logger.Audit(userID, "schedule_created", schedule.ID, true, map[string]interface{}{
		"doctor_id": schedule.DoctorID,
		"work_date": schedule.WorkDate.Format("2006-01-02"),
	})
	return schedule, nil
}

// GetSchedule retrieves a single schedule
func (s *Service) GetSchedule(id string) (*types.Schedule, error) {
	schedule, err := s.repo.GetScheduleByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get schedule", err)
	}
	return schedule, nil
}

// GetSchedules retrieves schedules matching the given filters
func (s *Service) GetSchedules(filters *types.ScheduleFilters) ([]*types.Schedule, error) {
	if filters == nil {
		filters = &types.ScheduleFilters{}
	}
	schedules, err := s.repo.GetSchedules(filters)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to query schedules", err)
	}
	return schedules, nil
}

// UpdateSchedule applies a partial update to a schedule
func (s *Service) UpdateSchedule(id string, updates *types.ScheduleUpdates, userID string) error {
	if err := s.repo.UpdateSchedule(id, updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to update schedule", err)
	}
	s.logger.Audit(userID, "schedule_updated", id, true, nil)
	return nil
}

// DeleteSchedule removes a schedule
func (s *Service) DeleteSchedule(id, userID string) error {
	if err := s.repo.DeleteSchedule(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete schedule", err)
	}
	s.logger.Audit(userID, "schedule_deleted", id, true, nil)
	return nil
}

// ImportSchedules reconciles an uploaded schedule batch against existing
// records and persists the accepted rows. Rejected rows come back with their
// reasons; they never block the accepted ones.
func (s *Service) ImportSchedules(rows []types.ScheduleImportRow, userID string) (*types.ScheduleImportReport, error) {
	if len(rows) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "import batch is empty", nil)
	}

	existing, err := s.repo.GetSchedules(&types.ScheduleFilters{})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to load existing schedules", err)
	}
	existingKeys := make(map[string]bool, len(existing))
	for _, sched := range existing {
		existingKeys[ImportKey(sched.DoctorID, sched.WorkDate)] = true
	}

	doctorIDs, err := s.repo.ListDoctorIDs()
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to load doctor roster", err)
	}
	knownDoctors := make(map[string]bool, len(doctorIDs))
	for _, id := range doctorIDs {
		knownDoctors[id] = true
	}

	report := ReconcileImport(rows, existingKeys, knownDoctors, s.now())

	if len(report.Accepted) > 0 {
		if err := s.repo.CreateSchedules(report.Accepted); err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to persist imported schedules", err)
		}
	}

	s.metrics.RecordImportRows("accepted", report.Added)
	s.metrics.RecordImportRows("rejected", report.Skipped)
	s.logger.Audit(userID, "schedules_imported", "schedules", true, map[string]interface{}{
		"added":   report.Added,
		"skipped": report.Skipped,
	})
	return report, nil
}

// PurgeStaleSchedules removes every schedule dated before today and returns
// the removed IDs. Safe to call repeatedly.
func (s *Service) PurgeStaleSchedules(today time.Time, userID string) ([]string, error) {
	ids, err := s.repo.PurgeSchedulesBefore(types.DateOf(today))
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to purge schedules", err)
	}

	s.metrics.RecordSchedulesPurged("manual", len(ids))
	s.logger.Audit(userID, "schedules_purged", "schedules", true, map[string]interface{}{
		"removed": len(ids),
	})
	return ids, nil
}

// UpcomingAppointments returns the pending appointments starting within the
// lookahead window after now
func (s *Service) UpcomingAppointments(now time.Time, lookahead time.Duration) ([]*types.Appointment, error) {
	if lookahead <= 0 {
		lookahead = s.cfg.ReminderLookahead()
	}
	pending, err := s.repo.GetPendingAppointmentsBetween(now, now.Add(lookahead))
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to query upcoming appointments", err)
	}
	return FilterUpcoming(pending, now, lookahead), nil
}

// checkConflicts runs the ordered conflict validation for a booking request
// and maps a failed check to a conflict error
func (s *Service) checkConflicts(req BookingRequest) error {
	schedule, err := s.repo.GetScheduleForDate(req.DoctorID, req.Start)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get schedule", err)
	}

	doctorAppts, err := s.repo.GetDoctorAppointmentsForDate(req.DoctorID, req.Start)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get doctor appointments", err)
	}

	var patientAppts []*types.Appointment
	if req.PatientID != "" {
		patientAppts, err = s.repo.GetPatientAppointmentsForDate(req.PatientID, req.Start)
		if err != nil {
			return types.NewInternalError(types.ErrCodeInternalError, "failed to get patient appointments", err)
		}
	}

	reason := ValidateBooking(req, schedule, doctorAppts, patientAppts)
	if reason != ConflictNone {
		s.metrics.RecordBookingConflict(string(reason))
		return types.NewConflictError(string(reason), reason.Message(), nil)
	}
	return nil
}
