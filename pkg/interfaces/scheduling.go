package interfaces

import (
	"time"

	"github.com/clinicdesk/registry/pkg/types"
)

// SchedulingService defines the interface for appointment and schedule management
type SchedulingService interface {
	// Appointment management
	CreateAppointment(apt *types.Appointment, userID string) (*types.Appointment, error)
	GetAppointment(aptID string) (*types.Appointment, error)
	MoveAppointment(aptID string, newStart time.Time, userID string) (*types.Appointment, error)
	RepeatAppointment(aptID string, start time.Time, purpose string, userID string) (*types.Appointment, error)
	CancelAppointment(aptID, userID string) error
	SetAppointmentStatus(aptID, status, userID string) error
	DeleteAppointment(aptID, userID string) error
	GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error)

	// Availability queries
	CheckAvailability(doctorID string, slot *types.TimeSlot) (bool, error)
	GetAvailableSlots(doctorID string, date time.Time) ([]*types.TimeSlot, error)

	// Schedule management
	CreateSchedule(s *types.Schedule, userID string) (*types.Schedule, error)
	GetSchedule(id string) (*types.Schedule, error)
	GetSchedules(filters *types.ScheduleFilters) ([]*types.Schedule, error)
	UpdateSchedule(id string, updates *types.ScheduleUpdates, userID string) error
	DeleteSchedule(id, userID string) error
	ImportSchedules(rows []types.ScheduleImportRow, userID string) (*types.ScheduleImportReport, error)
	PurgeStaleSchedules(today time.Time, userID string) ([]string, error)

	// Reminder feed
	UpcomingAppointments(now time.Time, lookahead time.Duration) ([]*types.Appointment, error)
}

// SchedulingRepository defines the interface for scheduling data persistence
type SchedulingRepository interface {
	// Appointments
	CreateAppointment(apt *types.Appointment) error
	GetAppointmentByID(id string) (*types.Appointment, error)
	UpdateAppointment(id string, updates *types.AppointmentUpdates) error
	DeleteAppointment(id string) error
	GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error)
	GetDoctorAppointmentsForDate(doctorID string, date time.Time) ([]*types.Appointment, error)
	GetPatientAppointmentsForDate(patientID string, date time.Time) ([]*types.Appointment, error)
	GetPendingAppointmentsBetween(from, to time.Time) ([]*types.Appointment, error)

	// Schedules
	CreateSchedule(s *types.Schedule) error
	CreateSchedules(schedules []*types.Schedule) error
	GetScheduleByID(id string) (*types.Schedule, error)
	GetScheduleForDate(doctorID string, date time.Time) (*types.Schedule, error)
	GetSchedules(filters *types.ScheduleFilters) ([]*types.Schedule, error)
	UpdateSchedule(id string, updates *types.ScheduleUpdates) error
	DeleteSchedule(id string) error
	PurgeSchedulesBefore(date time.Time) ([]string, error)

	// Doctors known to the scheduler
	DoctorExists(id string) (bool, error)
	ListDoctorIDs() ([]string, error)
}

// Notifier defines the interface for appointment notifications.
// Delivery mechanics live outside the registry; implementations decide how
// a reminder or confirmation reaches the patient.
type Notifier interface {
	SendAppointmentConfirmation(apt *types.Appointment) error
	SendAppointmentReminder(apt *types.Appointment) error
	SendAppointmentChange(apt *types.Appointment, changeType string) error
}
