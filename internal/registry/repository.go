package registry

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/clinicdesk/registry/pkg/database"
	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/types"
)

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = errors.New("not found")

// Repository implements the RegistryRepository interface
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new directory repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.RegistryRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// CreateDoctor inserts a doctor record
func (r *Repository) CreateDoctor(d *types.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, first_name, last_name, specialization, license_number,
			cabinet_number, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		d.ID,
		d.FirstName,
		d.LastName,
		d.Specialization,
		d.LicenseNumber,
		d.CabinetNumber,
		d.IsActive,
	)

	if err != nil {
		r.logger.Errorf("Failed to create doctor: %v", err)
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

// GetDoctorByID retrieves a doctor by ID
func (r *Repository) GetDoctorByID(id string) (*types.Doctor, error) {
	query := `
		SELECT id, first_name, last_name, specialization, license_number,
			   cabinet_number, is_active, created_at, updated_at
		FROM doctors
		WHERE id = $1`

	d := &types.Doctor{}
	err := r.db.QueryRow(query, id).Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Specialization,
		&d.LicenseNumber,
		&d.CabinetNumber,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Errorf("Failed to get doctor %s: %v", id, err)
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	return d, nil
}

// ListDoctors retrieves doctors ordered by name
func (r *Repository) ListDoctors(activeOnly bool) ([]*types.Doctor, error) {
	query := `
		SELECT id, first_name, last_name, specialization, license_number,
			   cabinet_number, is_active, created_at, updated_at
		FROM doctors`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY last_name ASC, first_name ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Errorf("Failed to list doctors: %v", err)
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer rows.Close()

	doctors := []*types.Doctor{}
	for rows.Next() {
		d := &types.Doctor{}
		err := rows.Scan(
			&d.ID,
			&d.FirstName,
			&d.LastName,
			&d.Specialization,
			&d.LicenseNumber,
			&d.CabinetNumber,
			&d.IsActive,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}

	return doctors, rows.Err()
}

// UpdateDoctor replaces a doctor's editable fields
func (r *Repository) UpdateDoctor(d *types.Doctor) error {
	query := `
		UPDATE doctors
		SET first_name = $1, last_name = $2, specialization = $3,
			license_number = $4, cabinet_number = $5, updated_at = NOW()
		WHERE id = $6`

	result, err := r.db.Exec(query,
		d.FirstName,
		d.LastName,
		d.Specialization,
		d.LicenseNumber,
		d.CabinetNumber,
		d.ID,
	)
	if err != nil {
		r.logger.Errorf("Failed to update doctor %s: %v", d.ID, err)
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDoctorActive flips a doctor's active flag
func (r *Repository) SetDoctorActive(id string, active bool) error {
	result, err := r.db.Exec(
		`UPDATE doctors SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id)
	if err != nil {
		r.logger.Errorf("Failed to set doctor %s active=%v: %v", id, active, err)
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePatient inserts a patient record
func (r *Repository) CreatePatient(p *types.Patient) error {
	query := `
		INSERT INTO patients (
			id, first_name, last_name, date_of_birth, phone_number
		) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query,
		p.ID,
		p.FirstName,
		p.LastName,
		p.DateOfBirth,
		p.PhoneNumber,
	)

	if err != nil {
		r.logger.Errorf("Failed to create patient: %v", err)
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// GetPatientByID retrieves a patient by ID
func (r *Repository) GetPatientByID(id string) (*types.Patient, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, phone_number,
			   created_at, updated_at
		FROM patients
		WHERE id = $1`

	p := &types.Patient{}
	err := r.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DateOfBirth,
		&p.PhoneNumber,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Errorf("Failed to get patient %s: %v", id, err)
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return p, nil
}

// SearchPatients finds patients whose name or phone number matches the query
func (r *Repository) SearchPatients(query string, limit int) ([]*types.Patient, error) {
	if limit <= 0 {
		limit = 50
	}

	sqlQuery := `
		SELECT id, first_name, last_name, date_of_birth, phone_number,
			   created_at, updated_at
		FROM patients
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR phone_number LIKE $1
		ORDER BY last_name ASC, first_name ASC
		LIMIT $2`

	rows, err := r.db.Query(sqlQuery, "%"+query+"%", limit)
	if err != nil {
		r.logger.Errorf("Failed to search patients: %v", err)
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	defer rows.Close()

	patients := []*types.Patient{}
	for rows.Next() {
		p := &types.Patient{}
		err := rows.Scan(
			&p.ID,
			&p.FirstName,
			&p.LastName,
			&p.DateOfBirth,
			&p.PhoneNumber,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}

	return patients, rows.Err()
}

// UpdatePatient replaces a patient's editable fields
func (r *Repository) UpdatePatient(p *types.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, last_name = $2, date_of_birth = $3,
			phone_number = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := r.db.Exec(query,
		p.FirstName,
		p.LastName,
		p.DateOfBirth,
		p.PhoneNumber,
		p.ID,
	)
	if err != nil {
		r.logger.Errorf("Failed to update patient %s: %v", p.ID, err)
		return fmt.Errorf("failed to update patient: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStatistics computes the registry dashboard counters
func (r *Repository) GetStatistics() (*types.RegistryStatistics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM appointments
			 WHERE start_time >= date_trunc('day', NOW())
			   AND start_time < date_trunc('day', NOW()) + INTERVAL '1 day'
			   AND status <> 'cancelled'),
			(SELECT COUNT(*) FROM appointments WHERE status = 'pending'),
			(SELECT COUNT(*) FROM doctors WHERE is_active),
			(SELECT COUNT(*) FROM patients)`

	stats := &types.RegistryStatistics{}
	err := r.db.QueryRow(query).Scan(
		&stats.AppointmentsToday,
		&stats.PendingAppointments,
		&stats.TotalDoctors,
		&stats.TotalPatients,
	)
	if err != nil {
		r.logger.Errorf("Failed to compute statistics: %v", err)
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}

	return stats, nil
}
