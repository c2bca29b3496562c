package registry

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/registry/pkg/database"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/types"
)

var repoNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := &Repository{
		db:     &database.DB{DB: sqlDB},
		logger: logger.New("error"),
	}

	cleanup := func() {
		sqlDB.Close()
	}
	return repo, mock, cleanup
}

func doctorColumns() []string {
	return []string{
		"id", "first_name", "last_name", "specialization", "license_number",
		"cabinet_number", "is_active", "created_at", "updated_at",
	}
}

func patientColumns() []string {
	return []string{
		"id", "first_name", "last_name", "date_of_birth", "phone_number",
		"created_at", "updated_at",
	}
}

func TestRepository_CreateDoctor(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	d := &types.Doctor{
		ID:             "doc-1",
		FirstName:      "Anna",
		LastName:       "Petrova",
		Specialization: "cardiology",
		LicenseNumber:  "L-100",
		CabinetNumber:  "12",
		IsActive:       true,
	}

	mock.ExpectExec("INSERT INTO doctors").
		WithArgs(d.ID, d.FirstName, d.LastName, d.Specialization,
			d.LicenseNumber, d.CabinetNumber, d.IsActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.CreateDoctor(d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetDoctorByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM doctors").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(doctorColumns()))

	d, err := repo.GetDoctorByID("missing")

	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListDoctors_ActiveOnlyAddsFilter(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows(doctorColumns()).
		AddRow("doc-1", "Anna", "Petrova", "cardiology", "L-100", "12", true, repoNow, repoNow)

	mock.ExpectQuery("FROM doctors WHERE is_active ORDER BY last_name").
		WillReturnRows(rows)

	doctors, err := repo.ListDoctors(true)

	assert.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Petrova", doctors[0].LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateDoctor_ZeroRowsIsNotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("UPDATE doctors").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDoctor(&types.Doctor{ID: "missing"})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_SetDoctorActive(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE doctors SET is_active = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(false, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetDoctorActive("doc-1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SearchPatients_WrapsPatternAndDefaultsLimit(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows(patientColumns()).
		AddRow("pat-1", "Ivan", "Sidorov", repoNow, "+7900", repoNow, repoNow)

	mock.ExpectQuery("ILIKE").
		WithArgs("%sidor%", 50).
		WillReturnRows(rows)

	patients, err := repo.SearchPatients("sidor", 0)

	assert.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Sidorov", patients[0].LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatePatient_ZeroRowsIsNotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("UPDATE patients").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePatient(&types.Patient{ID: "missing"})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetStatistics(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"today", "pending", "doctors", "patients"}).
		AddRow(3, 7, 4, 120)

	mock.ExpectQuery("SELECT").
		WillReturnRows(rows)

	stats, err := repo.GetStatistics()

	assert.NoError(t, err)
	assert.Equal(t, 3, stats.AppointmentsToday)
	assert.Equal(t, 7, stats.PendingAppointments)
	assert.Equal(t, 4, stats.TotalDoctors)
	assert.Equal(t, 120, stats.TotalPatients)
}
