package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicdesk/registry/pkg/types"
)

func pendingAppt(id string, start, end time.Time) *types.Appointment {
	return &types.Appointment{
		ID:        id,
		StartTime: start,
		EndTime:   end,
		Status:    string(types.StatusPending),
	}
}

func TestValidateBooking_NoSchedule(t *testing.T) {
	req := BookingRequest{DoctorID: "doc-1", Start: dayAt(9, 0), End: dayAt(9, 30)}

	assert.Equal(t, ConflictNoWorkingSchedule, ValidateBooking(req, nil, nil, nil))
}

func TestValidateBooking_ScheduleMarkedUnavailable(t *testing.T) {
	schedule := workingWindow(9, 12)
	schedule.IsAvailable = false
	req := BookingRequest{DoctorID: "doc-1", Start: dayAt(9, 0), End: dayAt(9, 30)}

	assert.Equal(t, ConflictNoWorkingSchedule, ValidateBooking(req, schedule, nil, nil))
}

func TestValidateBooking_OutsideWorkingHours(t *testing.T) {
	schedule := workingWindow(9, 12)

	before := BookingRequest{Start: dayAt(8, 30), End: dayAt(9, 0)}
	assert.Equal(t, ConflictOutsideWorkingHours, ValidateBooking(before, schedule, nil, nil))

	straddling := BookingRequest{Start: dayAt(11, 45), End: dayAt(12, 15)}
	assert.Equal(t, ConflictOutsideWorkingHours, ValidateBooking(straddling, schedule, nil, nil))
}

func TestValidateBooking_EndingAtWindowEndIsInside(t *testing.T) {
	schedule := workingWindow(9, 12)
	req := BookingRequest{Start: dayAt(11, 30), End: dayAt(12, 0)}

	assert.Equal(t, ConflictNone, ValidateBooking(req, schedule, nil, nil))
}

func TestValidateBooking_DoctorBusy(t *testing.T) {
	schedule := workingWindow(9, 12)
	doctorAppts := []*types.Appointment{pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))}
	req := BookingRequest{Start: dayAt(10, 15), End: dayAt(10, 45)}

	assert.Equal(t, ConflictDoctorBusy, ValidateBooking(req, schedule, doctorAppts, nil))
}

func TestValidateBooking_PatientBusy(t *testing.T) {
	schedule := workingWindow(9, 12)
	patientAppts := []*types.Appointment{pendingAppt("b1", dayAt(10, 0), dayAt(10, 30))}
	req := BookingRequest{Start: dayAt(10, 0), End: dayAt(10, 30)}

	assert.Equal(t, ConflictPatientBusy, ValidateBooking(req, schedule, nil, patientAppts))
}

func TestValidateBooking_ChecksRunInFixedOrder(t *testing.T) {
	// With both doctor and patient busy, the doctor check reports first
	schedule := workingWindow(9, 12)
	busy := []*types.Appointment{pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))}
	req := BookingRequest{Start: dayAt(10, 0), End: dayAt(10, 30)}

	assert.Equal(t, ConflictDoctorBusy, ValidateBooking(req, schedule, busy, busy))

	// And with no schedule at all, nothing else is consulted
	assert.Equal(t, ConflictNoWorkingSchedule, ValidateBooking(req, nil, busy, busy))
}

func TestValidateBooking_MoveOntoOwnTime(t *testing.T) {
	schedule := workingWindow(9, 12)
	doctorAppts := []*types.Appointment{pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))}

	req := BookingRequest{
		Start:                dayAt(10, 15),
		End:                  dayAt(10, 45),
		ExcludeAppointmentID: "a1",
	}
	assert.Equal(t, ConflictNone, ValidateBooking(req, schedule, doctorAppts, nil))
}

func TestValidateBooking_CancelledAppointmentFreesSlot(t *testing.T) {
	schedule := workingWindow(9, 12)
	cancelled := &types.Appointment{
		ID:        "a1",
		StartTime: dayAt(10, 0),
		EndTime:   dayAt(10, 30),
		Status:    string(types.StatusCancelled),
	}
	req := BookingRequest{Start: dayAt(10, 0), End: dayAt(10, 30)}

	assert.Equal(t, ConflictNone, ValidateBooking(req, schedule, []*types.Appointment{cancelled}, nil))
}

// Scenario: fully booked morning except one gap
func TestValidateBooking_MorningWithGap(t *testing.T) {
	schedule := workingWindow(9, 12)
	doctorAppts := []*types.Appointment{
		pendingAppt("a1", dayAt(9, 0), dayAt(9, 30)),
		pendingAppt("a2", dayAt(9, 30), dayAt(10, 0)),
		pendingAppt("a3", dayAt(10, 30), dayAt(11, 0)),
	}

	gap := BookingRequest{Start: dayAt(10, 0), End: dayAt(10, 30)}
	assert.Equal(t, ConflictNone, ValidateBooking(gap, schedule, doctorAppts, nil))

	taken := BookingRequest{Start: dayAt(9, 30), End: dayAt(10, 0)}
	assert.Equal(t, ConflictDoctorBusy, ValidateBooking(taken, schedule, doctorAppts, nil))
}

// A morning at the front desk: sequential bookings against one 09:00-12:00
// schedule, including a cancellation that frees its slot for rebooking.
func TestValidateBooking_MorningSequence(t *testing.T) {
	schedule := workingWindow(9, 12)
	var doctorAppts []*types.Appointment

	first := BookingRequest{Start: dayAt(9, 0), End: dayAt(9, 30)}
	assert.Equal(t, ConflictNone, ValidateBooking(first, schedule, doctorAppts, nil))
	doctorAppts = append(doctorAppts, pendingAppt("a1", dayAt(9, 0), dayAt(9, 30)))

	overlapping := BookingRequest{Start: dayAt(9, 15), End: dayAt(9, 45)}
	assert.Equal(t, ConflictDoctorBusy, ValidateBooking(overlapping, schedule, doctorAppts, nil))

	backToBack := BookingRequest{Start: dayAt(9, 30), End: dayAt(10, 0)}
	assert.Equal(t, ConflictNone, ValidateBooking(backToBack, schedule, doctorAppts, nil))
	doctorAppts = append(doctorAppts, pendingAppt("a2", dayAt(9, 30), dayAt(10, 0)))

	afterHours := BookingRequest{Start: dayAt(12, 0), End: dayAt(12, 30)}
	assert.Equal(t, ConflictOutsideWorkingHours, ValidateBooking(afterHours, schedule, doctorAppts, nil))

	doctorAppts[0].Status = string(types.StatusCancelled)
	assert.Equal(t, ConflictNone, ValidateBooking(first, schedule, doctorAppts, nil))
}

func TestConflictReason_Messages(t *testing.T) {
	assert.Contains(t, ConflictNoWorkingSchedule.Message(), "no working schedule")
	assert.Contains(t, ConflictOutsideWorkingHours.Message(), "working hours")
	assert.Contains(t, ConflictDoctorBusy.Message(), "doctor")
	assert.Contains(t, ConflictPatientBusy.Message(), "patient")
}
