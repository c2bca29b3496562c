package types

import "time"

// Doctor represents a practicing doctor in the registry
type Doctor struct {
	ID             string    `json:"id" db:"id"`
	FirstName      string    `json:"first_name" db:"first_name"`
	LastName       string    `json:"last_name" db:"last_name"`
	Specialization string    `json:"specialization" db:"specialization"`
	LicenseNumber  string    `json:"license_number" db:"license_number"`
	CabinetNumber  string    `json:"cabinet_number" db:"cabinet_number"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Patient represents a registered patient
type Patient struct {
	ID          string     `json:"id" db:"id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	PhoneNumber string     `json:"phone_number,omitempty" db:"phone_number"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// RegistryStatistics is the dashboard summary of the registry
type RegistryStatistics struct {
	AppointmentsToday   int `json:"appointments_today"`
	PendingAppointments int `json:"pending_appointments"`
	TotalDoctors        int `json:"total_doctors"`
	TotalPatients       int `json:"total_patients"`
}
