package scheduling

import (
	"time"

	"github.com/clinicdesk/registry/pkg/types"
)

// ConflictReason identifies why a booking request was rejected. ConflictNone
// means the interval is bookable.
type ConflictReason string

const (
	ConflictNone                ConflictReason = "none"
	ConflictNoWorkingSchedule   ConflictReason = "no_working_schedule"
	ConflictOutsideWorkingHours ConflictReason = "outside_working_hours"
	ConflictDoctorBusy          ConflictReason = "doctor_busy"
	ConflictPatientBusy         ConflictReason = "patient_busy"
)

// Message returns a human-readable description of the conflict
func (r ConflictReason) Message() string {
	switch r {
	case ConflictNoWorkingSchedule:
		return "doctor has no working schedule on the requested date"
	case ConflictOutsideWorkingHours:
		return "requested time falls outside the doctor's working hours"
	case ConflictDoctorBusy:
		return "doctor already has an appointment overlapping the requested time"
	case ConflictPatientBusy:
		return "patient already has an appointment overlapping the requested time"
	}
	return "no conflict"
}

// BookingRequest carries one candidate appointment interval for validation.
// ExcludeAppointmentID, when set, marks an existing appointment whose own
// time must not count against the request; moves set it to the appointment
// being moved.
type BookingRequest struct {
	DoctorID             string
	PatientID            string
	Start                time.Time
	End                  time.Time
	ExcludeAppointmentID string
}

// ValidateBooking runs the conflict checks for a booking request in fixed
// order and returns the first reason that fails. The schedule may be nil when
// the doctor has no published window on the requested date. Appointment lists
// carry the doctor's and patient's same-day appointments; cancelled entries
// are ignored by the overlap checks.
func ValidateBooking(req BookingRequest, schedule *types.Schedule, doctorAppts, patientAppts []*types.Appointment) ConflictReason {
	if schedule == nil || !schedule.IsAvailable {
		return ConflictNoWorkingSchedule
	}

	// The interval must sit fully inside the working window. A booking that
	// ends exactly at the window end is inside it.
	if req.Start.Before(schedule.StartTime) || req.End.After(schedule.EndTime) {
		return ConflictOutsideWorkingHours
	}

	if !IntervalFree(doctorAppts, req.Start, req.End, req.ExcludeAppointmentID) {
		return ConflictDoctorBusy
	}

	if !IntervalFree(patientAppts, req.Start, req.End, req.ExcludeAppointmentID) {
		return ConflictPatientBusy
	}

	return ConflictNone
}
