package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/types"
)

// Service implements the RegistryService interface
type Service struct {
	repo   interfaces.RegistryRepository
	logger *logger.Logger
}

// NewService creates a new directory service
func NewService(repo interfaces.RegistryRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// CreateDoctor registers a new doctor
func (s *Service) CreateDoctor(d *types.Doctor, userID string) (*types.Doctor, error) {
	if d.FirstName == "" || d.LastName == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "first_name and last_name are required", nil)
	}
	if d.Specialization == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "specialization is required", nil)
	}

	d.ID = uuid.New().String()
	d.IsActive = true
	if err := s.repo.CreateDoctor(d); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create doctor", err)
	}

	s.logger.Audit(userID, "doctor_created", d.ID, true, map[string]interface{}{
		"specialization": d.Specialization,
	})
	return d, nil
}

// GetDoctor retrieves a doctor by ID
func (s *Service) GetDoctor(id string) (*types.Doctor, error) {
	d, err := s.repo.GetDoctorByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor %s not found", id))
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get doctor", err)
	}
	return d, nil
}

// ListDoctors retrieves doctors, optionally only active ones
func (s *Service) ListDoctors(activeOnly bool) ([]*types.Doctor, error) {
	doctors, err := s.repo.ListDoctors(activeOnly)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list doctors", err)
	}
	return doctors, nil
}

// UpdateDoctor replaces a doctor's editable fields
func (s *Service) UpdateDoctor(id string, d *types.Doctor, userID string) error {
	if d.FirstName == "" || d.LastName == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "first_name and last_name are required", nil)
	}

	d.ID = id
	if err := s.repo.UpdateDoctor(d); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor %s not found", id))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to update doctor", err)
	}

	s.logger.Audit(userID, "doctor_updated", id, true, nil)
	return nil
}

// DeactivateDoctor marks a doctor inactive. Their history stays; new
// schedules and bookings stop.
func (s *Service) DeactivateDoctor(id, userID string) error {
	if err := s.repo.SetDoctorActive(id, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor %s not found", id))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to deactivate doctor", err)
	}

	s.logger.Audit(userID, "doctor_deactivated", id, true, nil)
	return nil
}

// CreatePatient registers a new patient
func (s *Service) CreatePatient(p *types.Patient, userID string) (*types.Patient, error) {
	if p.FirstName == "" || p.LastName == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "first_name and last_name are required", nil)
	}

	p.ID = uuid.New().String()
	if err := s.repo.CreatePatient(p); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create patient", err)
	}

	s.logger.Audit(userID, "patient_created", p.ID, true, nil)
	return p, nil
}

// GetPatient retrieves a patient by ID
func (s *Service) GetPatient(id string) (*types.Patient, error) {
	p, err := s.repo.GetPatientByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %s not found", id))
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get patient", err)
	}
	return p, nil
}

// SearchPatients finds patients by name or phone fragment
func (s *Service) SearchPatients(query string, limit int) ([]*types.Patient, error) {
	if query == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "search query is empty", nil)
	}

	patients, err := s.repo.SearchPatients(query, limit)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to search patients", err)
	}
	return patients, nil
}

// UpdatePatient replaces a patient's editable fields
func (s *Service) UpdatePatient(id string, p *types.Patient, userID string) error {
	if p.FirstName == "" || p.LastName == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "first_name and last_name are required", nil)
	}

	p.ID = id
	if err := s.repo.UpdatePatient(p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %s not found", id))
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to update patient", err)
	}

	s.logger.Audit(userID, "patient_updated", id, true, nil)
	return nil
}

// GetStatistics returns the registry dashboard counters
func (s *Service) GetStatistics() (*types.RegistryStatistics, error) {
	stats, err := s.repo.GetStatistics()
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to compute statistics", err)
	}
	return stats, nil
}
