package types

import "time"

// Appointment represents a booked patient visit with a doctor
type Appointment struct {
	ID        string    `json:"id" db:"id"`
	PatientID string    `json:"patient_id" db:"patient_id"`
	DoctorID  string    `json:"doctor_id" db:"doctor_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	Status    string    `json:"status" db:"status"`
	Purpose   string    `json:"purpose" db:"purpose"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ValidStatus reports whether s is a member of the closed status set
func ValidStatus(s string) bool {
	switch AppointmentStatus(s) {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AppointmentPurposes is the catalogue of visit purposes offered at booking
var AppointmentPurposes = []string{
	"consultation",
	"initial_examination",
	"repeat_visit",
	"lab_tests",
	"certificate",
	"prescription",
	"vaccination",
	"routine_checkup",
	"other",
}

// ValidPurpose reports whether p is a member of the purpose catalogue
func ValidPurpose(p string) bool {
	for _, v := range AppointmentPurposes {
		if v == p {
			return true
		}
	}
	return false
}

// Schedule represents one published working window for one doctor on one date.
// WorkDate carries the calendar date only; StartTime/EndTime carry the full
// timestamps of the window on that date.
type Schedule struct {
	ID          string    `json:"id" db:"id"`
	DoctorID    string    `json:"doctor_id" db:"doctor_id"`
	WorkDate    time.Time `json:"work_date" db:"work_date"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TimeSlot represents a candidate booking interval, derived and never persisted
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// AppointmentFilters represents filters for appointment queries
type AppointmentFilters struct {
	PatientID string    `json:"patient_id,omitempty"`
	DoctorID  string    `json:"doctor_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	FromDate  time.Time `json:"from_date,omitempty"`
	ToDate    time.Time `json:"to_date,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// AppointmentUpdates represents updates to an appointment
type AppointmentUpdates struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Purpose   *string    `json:"purpose,omitempty"`
}

// ScheduleFilters represents filters for schedule queries
type ScheduleFilters struct {
	DoctorID string    `json:"doctor_id,omitempty"`
	DateFrom time.Time `json:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty"`
}

// ScheduleUpdates represents updates to a schedule
type ScheduleUpdates struct {
	WorkDate    *time.Time `json:"work_date,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsAvailable *bool      `json:"is_available,omitempty"`
}

// ScheduleImportRow is one raw row from a bulk schedule upload. Fields are
// kept as strings so malformed rows can be reported instead of dropped.
type ScheduleImportRow struct {
	DoctorID  string `json:"doctor_id"`
	WorkDate  string `json:"work_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Import rejection reasons
const (
	ImportRejectParseError        = "parse_error"
	ImportRejectDuplicateExisting = "duplicate_existing"
	ImportRejectDuplicateInBatch  = "duplicate_in_batch"
)

// ScheduleImportRejection reports one rejected upload row with its position
// in the original batch
type ScheduleImportRejection struct {
	Index  int               `json:"index"`
	Row    ScheduleImportRow `json:"row"`
	Reason string            `json:"reason"`
	Detail string            `json:"detail,omitempty"`
}

// ScheduleImportReport summarizes the outcome of a bulk schedule upload
type ScheduleImportReport struct {
	Added    int                       `json:"added"`
	Skipped  int                       `json:"skipped"`
	Accepted []*Schedule               `json:"accepted"`
	Rejected []ScheduleImportRejection `json:"rejected"`
}

// DateOf truncates a timestamp to its calendar date in the timestamp's location
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two timestamps fall on the same calendar date
func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
