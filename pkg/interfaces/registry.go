package interfaces

import "github.com/clinicdesk/registry/pkg/types"

// RegistryService defines the interface for the doctor and patient directory
type RegistryService interface {
	CreateDoctor(d *types.Doctor, userID string) (*types.Doctor, error)
	GetDoctor(id string) (*types.Doctor, error)
	ListDoctors(activeOnly bool) ([]*types.Doctor, error)
	UpdateDoctor(id string, d *types.Doctor, userID string) error
	DeactivateDoctor(id, userID string) error

	CreatePatient(p *types.Patient, userID string) (*types.Patient, error)
	GetPatient(id string) (*types.Patient, error)
	SearchPatients(query string, limit int) ([]*types.Patient, error)
	UpdatePatient(id string, p *types.Patient, userID string) error

	GetStatistics() (*types.RegistryStatistics, error)
}

// RegistryRepository defines the interface for directory persistence
type RegistryRepository interface {
	CreateDoctor(d *types.Doctor) error
	GetDoctorByID(id string) (*types.Doctor, error)
	ListDoctors(activeOnly bool) ([]*types.Doctor, error)
	UpdateDoctor(d *types.Doctor) error
	SetDoctorActive(id string, active bool) error

	CreatePatient(p *types.Patient) error
	GetPatientByID(id string) (*types.Patient, error)
	SearchPatients(query string, limit int) ([]*types.Patient, error)
	UpdatePatient(p *types.Patient) error

	GetStatistics() (*types.RegistryStatistics, error)
}
