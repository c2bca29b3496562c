package scheduling

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/clinicdesk/registry/pkg/database"
	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/types"
)

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrOverlapConstraint is returned when the database rejects an appointment
// because it overlaps another non-cancelled appointment for the same doctor.
// This is the race backstop behind the application-level conflict checks.
var ErrOverlapConstraint = errors.New("appointment overlaps an existing appointment")

const pqExclusionViolation = "23P01"

// Repository implements the SchedulingRepository interface
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new scheduling repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.SchedulingRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// CreateAppointment creates a new appointment
func (r *Repository) CreateAppointment(apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, start_time, end_time, status, purpose
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		apt.StartTime,
		apt.EndTime,
		apt.Status,
		apt.Purpose,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqExclusionViolation {
			return ErrOverlapConstraint
		}
		r.logger.Errorf("Failed to create appointment: %v", err)
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	r.logger.Infof("Created appointment %s for patient %s with doctor %s", apt.ID, apt.PatientID, apt.DoctorID)
	return nil
}

// GetAppointmentByID retrieves an appointment by ID
func (r *Repository) GetAppointmentByID(id string) (*types.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, start_time, end_time, status, purpose,
			   created_at, updated_at
		FROM appointments
		WHERE id = $1`

	apt := &types.Appointment{}
	err := r.db.QueryRow(query, id).Scan(
		&apt.ID,
		&apt.PatientID,
		&apt.DoctorID,
		&apt.StartTime,
		&apt.EndTime,
		&apt.Status,
		&apt.Purpose,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Errorf("Failed to get appointment %s: %v", id, err)
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return apt, nil
}

// UpdateAppointment applies a partial update to an appointment
func (r *Repository) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	setClauses := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.StartTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("start_time = $%d", argIndex))
		args = append(args, *updates.StartTime)
		argIndex++
	}
	if updates.EndTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_time = $%d", argIndex))
		args = append(args, *updates.EndTime)
		argIndex++
	}
	if updates.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *updates.Status)
		argIndex++
	}
	if updates.Purpose != nil {
		setClauses = append(setClauses, fmt.Sprintf("purpose = $%d", argIndex))
		args = append(args, *updates.Purpose)
		argIndex++
	}

	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqExclusionViolation {
			return ErrOverlapConstraint
		}
		r.logger.Errorf("Failed to update appointment %s: %v", id, err)
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAppointment removes an appointment row
func (r *Repository) DeleteAppointment(id string) error {
	result, err := r.db.Exec(`DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		r.logger.Errorf("Failed to delete appointment %s: %v", id, err)
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	r.logger.Infof("Deleted appointment %s", id)
	return nil
}

// GetAppointments retrieves appointments matching the given filters
func (r *Repository) GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, start_time, end_time, status, purpose,
			   created_at, updated_at
		FROM appointments
		WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filters.PatientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argIndex)
		args = append(args, filters.PatientID)
		argIndex++
	}
	if filters.DoctorID != "" {
		query += fmt.Sprintf(" AND doctor_id = $%d", argIndex)
		args = append(args, filters.DoctorID)
		argIndex++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filters.Status)
		argIndex++
	}
	if !filters.FromDate.IsZero() {
		query += fmt.Sprintf(" AND start_time >= $%d", argIndex)
		args = append(args, filters.FromDate)
		argIndex++
	}
	if !filters.ToDate.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", argIndex)
		args = append(args, filters.ToDate)
		argIndex++
	}

	query += " ORDER BY start_time ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
	}

	return r.queryAppointments(query, args...)
}

// GetDoctorAppointmentsForDate retrieves all of a doctor's appointments whose
// start falls on the given calendar date
func (r *Repository) GetDoctorAppointmentsForDate(doctorID string, date time.Time) ([]*types.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, start_time, end_time, status, purpose,
			   created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`

	day := types.DateOf(date)
	return r.queryAppointments(query, doctorID, day, day.AddDate(0, 0, 1))
}

// GetPatientAppointmentsForDate retrieves all of a patient's appointments
// whose start falls on the given calendar date
func (r *Repository) GetPatientAppointmentsForDate(patientID string, date time.Time) ([]*types.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, start_time, end_time, status, purpose,
			   created_at, updated_at
		FROM appointments
		WHERE patient_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`

	day := types.DateOf(date)
	return r.queryAppointments(query, patientID, day, day.AddDate(0, 0, 1))
}

// GetPendingAppointmentsBetween retrieves pending appointments starting in
// the half-open window (from, to]
func (r *Repository) GetPendingAppointmentsBetween(from, to time.Time) ([]*types.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, start_time, end_time, status, purpose,
			   created_at, updated_at
		FROM appointments
		WHERE status = $1 AND start_time > $2 AND start_time <= $3
		ORDER BY start_time ASC`

	return r.queryAppointments(query, string(types.StatusPending), from, to)
}

func (r *Repository) queryAppointments(query string, args ...interface{}) ([]*types.Appointment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Errorf("Failed to query appointments: %v", err)
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appointments := []*types.Appointment{}
	for rows.Next() {
		apt := &types.Appointment{}
		err := rows.Scan(
			&apt.ID,
			&apt.PatientID,
			&apt.DoctorID,
			&apt.StartTime,
			&apt.EndTime,
			&apt.Status,
			&apt.Purpose,
			&apt.CreatedAt,
			&apt.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}

	return appointments, rows.Err()
}

// CreateSchedule creates a single working schedule
func (r *Repository) CreateSchedule(s *types.Schedule) error {
	query := `
		INSERT INTO schedules (
			id, doctor_id, work_date, start_time, end_time, is_available
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		s.ID,
		s.DoctorID,
		s.WorkDate,
		s.StartTime,
		s.EndTime,
		s.IsAvailable,
	)

	if err != nil {
		r.logger.Errorf("Failed to create schedule: %v", err)
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// CreateSchedules inserts a batch of schedules in one transaction; either
// every row lands or none do
func (r *Repository) CreateSchedules(schedules []*types.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO schedules (
			id, doctor_id, work_date, start_time, end_time, is_available
		) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare schedule insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range schedules {
		if _, err := stmt.Exec(s.ID, s.DoctorID, s.WorkDate, s.StartTime, s.EndTime, s.IsAvailable); err != nil {
			r.logger.Errorf("Failed to insert schedule for doctor %s on %s: %v",
				s.DoctorID, s.WorkDate.Format("2006-01-02"), err)
			return fmt.Errorf("failed to insert schedule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schedule batch: %w", err)
	}

	r.logger.Infof("Inserted %d schedules", len(schedules))
	return nil
}

// GetScheduleByID retrieves a schedule by ID
func (r *Repository) GetScheduleByID(id string) (*types.Schedule, error) {
	query := `
		SELECT id, doctor_id, work_date, start_time, end_time, is_available,
			   created_at, updated_at
		FROM schedules
		WHERE id = $1`

	s := &types.Schedule{}
	err := r.db.QueryRow(query, id).Scan(
		&s.ID,
		&s.DoctorID,
		&s.WorkDate,
		&s.StartTime,
		&s.EndTime,
		&s.IsAvailable,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Errorf("Failed to get schedule %s: %v", id, err)
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return s, nil
}

// GetScheduleForDate retrieves a doctor's schedule on the given calendar
// date, or ErrNotFound when the doctor has no published schedule that day
func (r *Repository) GetScheduleForDate(doctorID string, date time.Time) (*types.Schedule, error) {
	query := `
		SELECT id, doctor_id, work_date, start_time, end_time, is_available,
			   created_at, updated_at
		FROM schedules
		WHERE doctor_id = $1 AND work_date = $2`

	s := &types.Schedule{}
	err := r.db.QueryRow(query, doctorID, types.DateOf(date)).Scan(
		&s.ID,
		&s.DoctorID,
		&s.WorkDate,
		&s.StartTime,
		&s.EndTime,
		&s.IsAvailable,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Errorf("Failed to get schedule for doctor %s on %s: %v",
			doctorID, date.Format("2006-01-02"), err)
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return s, nil
}

// GetSchedules retrieves schedules matching the given filters
func (r *Repository) GetSchedules(filters *types.ScheduleFilters) ([]*types.Schedule, error) {
	query := `
		SELECT id, doctor_id, work_date, start_time, end_time, is_available,
			   created_at, updated_at
		FROM schedules
		WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filters.DoctorID != "" {
		query += fmt.Sprintf(" AND doctor_id = $%d", argIndex)
		args = append(args, filters.DoctorID)
		argIndex++
	}
	if !filters.DateFrom.IsZero() {
		query += fmt.Sprintf(" AND work_date >= $%d", argIndex)
		args = append(args, types.DateOf(filters.DateFrom))
		argIndex++
	}
	if !filters.DateTo.IsZero() {
		query += fmt.Sprintf(" AND work_date <= $%d", argIndex)
		args = append(args, types.DateOf(filters.DateTo))
	}

	query += " ORDER BY work_date ASC, doctor_id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Errorf("Failed to query schedules: %v", err)
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []*types.Schedule{}
	for rows.Next() {
		s := &types.Schedule{}
		err := rows.Scan(
			&s.ID,
			&s.DoctorID,
			&s.WorkDate,
			&s.StartTime,
			&s.EndTime,
			&s.IsAvailable,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}

	return schedules, rows.Err()
}

// UpdateSchedule applies a partial update to a schedule
func (r *Repository) UpdateSchedule(id string, updates *types.ScheduleUpdates) error {
	setClauses := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.WorkDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("work_date = $%d", argIndex))
		args = append(args, types.DateOf(*updates.WorkDate))
		argIndex++
	}
	if updates.StartTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("start_time = $%d", argIndex))
		args = append(args, *updates.StartTime)
		argIndex++
	}
	if updates.EndTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_time = $%d", argIndex))
		args = append(args, *updates.EndTime)
		argIndex++
	}
	if updates.IsAvailable != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_available = $%d", argIndex))
		args = append(args, *updates.IsAvailable)
		argIndex++
	}

	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE schedules SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Errorf("Failed to update schedule %s: %v", id, err)
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule row
func (r *Repository) DeleteSchedule(id string) error {
	result, err := r.db.Exec(`DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		r.logger.Errorf("Failed to delete schedule %s: %v", id, err)
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeSchedulesBefore deletes every schedule with a work date earlier than
// the given date and returns the removed IDs. Calling it again with the same
// date removes nothing.
func (r *Repository) PurgeSchedulesBefore(date time.Time) ([]string, error) {
	query := `DELETE FROM schedules WHERE work_date < $1 RETURNING id`

	rows, err := r.db.Query(query, types.DateOf(date))
	if err != nil {
		r.logger.Errorf("Failed to purge schedules before %s: %v", date.Format("2006-01-02"), err)
		return nil, fmt.Errorf("failed to purge schedules: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan purged schedule id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DoctorExists reports whether a doctor with the given ID is on record
func (r *Repository) DoctorExists(id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM doctors WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check doctor existence: %w", err)
	}
	return exists, nil
}

// ListDoctorIDs returns the IDs of all active doctors
func (r *Repository) ListDoctorIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT id FROM doctors WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan doctor id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
