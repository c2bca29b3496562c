package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
	"github.com/clinicdesk/registry/pkg/types"
)

// MockSchedulingRepository is a mock implementation of SchedulingRepository
type MockSchedulingRepository struct {
	mock.Mock
}

func (m *MockSchedulingRepository) CreateAppointment(apt *types.Appointment) error {
	args := m.Called(apt)
	return args.Error(0)
}

func (m *MockSchedulingRepository) GetAppointmentByID(id string) (*types.Appointment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockSchedulingRepository) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockSchedulingRepository) DeleteAppointment(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockSchedulingRepository) GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockSchedulingRepository) GetDoctorAppointmentsForDate(doctorID string, date time.Time) ([]*types.Appointment, error) {
	args := m.Called(doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockSchedulingRepository) GetPatientAppointmentsForDate(patientID string, date time.Time) ([]*types.Appointment, error) {
	args := m.Called(patientID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockSchedulingRepository) GetPendingAppointmentsBetween(from, to time.Time) ([]*types.Appointment, error) {
	args := m.Called(from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockSchedulingRepository) CreateSchedule(s *types.Schedule) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockSchedulingRepository) CreateSchedules(schedules []*types.Schedule) error {
	args := m.Called(schedules)
	return args.Error(0)
}

func (m *MockSchedulingRepository) GetScheduleByID(id string) (*types.Schedule, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Schedule), args.Error(1)
}

func (m *MockSchedulingRepository) GetScheduleForDate(doctorID string, date time.Time) (*types.Schedule, error) {
	args := m.Called(doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Schedule), args.Error(1)
}

func (m *MockSchedulingRepository) GetSchedules(filters *types.ScheduleFilters) ([]*types.Schedule, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Schedule), args.Error(1)
}

func (m *MockSchedulingRepository) UpdateSchedule(id string, updates *types.ScheduleUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockSchedulingRepository) DeleteSchedule(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockSchedulingRepository) PurgeSchedulesBefore(date time.Time) ([]string, error) {
	args := m.Called(date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSchedulingRepository) DoctorExists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSchedulingRepository) ListDoctorIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendAppointmentConfirmation(apt *types.Appointment) error {
	args := m.Called(apt)
	return args.Error(0)
}

func (m *MockNotifier) SendAppointmentReminder(apt *types.Appointment) error {
	args := m.Called(apt)
	return args.Error(0)
}

func (m *MockNotifier) SendAppointmentChange(apt *types.Appointment, changeType string) error {
	args := m.Called(apt, changeType)
	return args.Error(0)
}

func testSchedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		SlotMinutes:              30,
		ReminderLookaheadMinutes: 60,
	}
}

func newTestService(repo *MockSchedulingRepository, notifier *MockNotifier) *Service {
	log := logger.New("error")
	metrics := monitoring.NewMetricsCollector("scheduling-test")

	var svc *Service
	if notifier == nil {
		svc = NewService(repo, nil, testSchedulingConfig(), log, metrics)
	} else {
		svc = NewService(repo, notifier, testSchedulingConfig(), log, metrics)
	}
	svc.SetClock(func() time.Time { return dayAt(8, 0) })
	return svc
}

func TestCreateAppointment_Success(t *testing.T) {
	repo := new(MockSchedulingRepository)
	notifier := new(MockNotifier)
	svc := newTestService(repo, notifier)

	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{}, nil)
	repo.On("CreateAppointment", mock.AnythingOfType("*types.Appointment")).Return(nil)
	notifier.On("SendAppointmentConfirmation", mock.Anything).Return(nil)

	apt := &types.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: dayAt(10, 0),
		Purpose:   "consultation",
	}
	created, err := svc.CreateAppointment(apt, "user-1")

	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, string(types.StatusPending), created.Status)
	// End defaults to start plus one slot
	assert.True(t, created.EndTime.Equal(dayAt(10, 30)))
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCreateAppointment_NoSchedule(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(nil, ErrNotFound)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{}, nil)

	apt := &types.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: dayAt(10, 0),
	}
	_, err := svc.CreateAppointment(apt, "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeConflict, regErr.Type)
	assert.Equal(t, string(ConflictNoWorkingSchedule), regErr.Code)
	repo.AssertNotCalled(t, "CreateAppointment", mock.Anything)
}

func TestCreateAppointment_DoctorBusy(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	busy := []*types.Appointment{pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))}
	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return(busy, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{}, nil)

	apt := &types.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: dayAt(10, 15),
		EndTime:   dayAt(10, 45),
	}
	_, err := svc.CreateAppointment(apt, "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, string(ConflictDoctorBusy), regErr.Code)
}

func TestCreateAppointment_PatientBusy(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	patientBusy := []*types.Appointment{pendingAppt("b1", dayAt(10, 0), dayAt(10, 30))}
	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return(patientBusy, nil)

	apt := &types.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: dayAt(10, 0),
		EndTime:   dayAt(10, 30),
	}
	_, err := svc.CreateAppointment(apt, "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, string(ConflictPatientBusy), regErr.Code)
}

func TestCreateAppointment_OverlapConstraintBackstop(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{}, nil)
	repo.On("CreateAppointment", mock.Anything).Return(ErrOverlapConstraint)

	apt := &types.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: dayAt(10, 0),
		EndTime:   dayAt(10, 30),
	}
	_, err := svc.CreateAppointment(apt, "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeConflict, regErr.Type)
}

func TestCreateAppointment_InvalidPurpose(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	apt := &types.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: dayAt(10, 0),
		Purpose:   "teleportation",
	}
	_, err := svc.CreateAppointment(apt, "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeValidation, regErr.Type)
}

func TestMoveAppointment_PreservesDuration(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	existing := pendingAppt("a1", dayAt(10, 0), dayAt(10, 45))
	existing.DoctorID = "doc-1"
	existing.PatientID = "pat-1"

	repo.On("GetAppointmentByID", "a1").Return(existing, nil)
	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{existing}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{existing}, nil)
	repo.On("UpdateAppointment", "a1", mock.MatchedBy(func(u *types.AppointmentUpdates) bool {
		return u.StartTime.Equal(dayAt(11, 0)) && u.EndTime.Equal(dayAt(11, 45))
	})).Return(nil)

	moved, err := svc.MoveAppointment("a1", dayAt(11, 0), "user-1")

	assert.NoError(t, err)
	assert.True(t, moved.EndTime.Sub(moved.StartTime) == 45*time.Minute)
	repo.AssertExpectations(t)
}

func TestMoveAppointment_ShiftWithinOwnWindow(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	existing := pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))
	existing.DoctorID = "doc-1"
	existing.PatientID = "pat-1"

	repo.On("GetAppointmentByID", "a1").Return(existing, nil)
	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{existing}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{existing}, nil)
	repo.On("UpdateAppointment", "a1", mock.Anything).Return(nil)

	// New interval overlaps the appointment's own current time
	_, err := svc.MoveAppointment("a1", dayAt(10, 15), "user-1")

	assert.NoError(t, err)
}

func TestMoveAppointment_CancelledRejected(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	cancelled := pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))
	cancelled.Status = string(types.StatusCancelled)
	repo.On("GetAppointmentByID", "a1").Return(cancelled, nil)

	_, err := svc.MoveAppointment("a1", dayAt(11, 0), "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeValidation, regErr.Type)
}

func TestRepeatAppointment_CopiesDoctorAndPatient(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	origin := pendingAppt("a1", dayAt(10, 0), dayAt(10, 30))
	origin.DoctorID = "doc-1"
	origin.PatientID = "pat-1"

	repo.On("GetAppointmentByID", "a1").Return(origin, nil)
	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{origin}, nil)
	repo.On("GetPatientAppointmentsForDate", "pat-1", mock.Anything).Return([]*types.Appointment{origin}, nil)
	repo.On("CreateAppointment", mock.MatchedBy(func(apt *types.Appointment) bool {
		return apt.DoctorID == "doc-1" && apt.PatientID == "pat-1" && apt.Purpose == "repeat_visit"
	})).Return(nil)

	repeat, err := svc.RepeatAppointment("a1", dayAt(11, 0), "", "user-1")

	assert.NoError(t, err)
	assert.NotEqual(t, origin.ID, repeat.ID)
	assert.True(t, repeat.StartTime.Equal(dayAt(11, 0)))
}

func TestSetAppointmentStatus_UnknownStatus(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	err := svc.SetAppointmentStatus("a1", "archived", "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeValidation, regErr.Type)
	repo.AssertNotCalled(t, "UpdateAppointment", mock.Anything, mock.Anything)
}

func TestCancelAppointment_NotFound(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("UpdateAppointment", "missing", mock.Anything).Return(ErrNotFound)

	err := svc.CancelAppointment("missing", "user-1")

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeNotFound, regErr.Type)
}

func TestGetAvailableSlots_NoScheduleMeansNoSlots(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(nil, ErrNotFound)

	slots, err := svc.GetAvailableSlots("doc-1", dayAt(0, 0))

	assert.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlots_FiltersBooked(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	booked := []*types.Appointment{pendingAppt("a1", dayAt(9, 0), dayAt(9, 30))}
	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(workingWindow(9, 12), nil)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return(booked, nil)

	slots, err := svc.GetAvailableSlots("doc-1", dayAt(0, 0))

	assert.NoError(t, err)
	assert.Len(t, slots, 5)
	assert.True(t, slots[0].StartTime.Equal(dayAt(9, 30)))
}

func TestCheckAvailability_ConflictMeansUnavailable(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("GetScheduleForDate", "doc-1", mock.Anything).Return(nil, ErrNotFound)
	repo.On("GetDoctorAppointmentsForDate", "doc-1", mock.Anything).Return([]*types.Appointment{}, nil)

	available, err := svc.CheckAvailability("doc-1", &types.TimeSlot{
		StartTime: dayAt(10, 0),
		EndTime:   dayAt(10, 30),
	})

	assert.NoError(t, err)
	assert.False(t, available)
}

func TestImportSchedules_PersistsAccepted(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("GetSchedules", mock.Anything).Return([]*types.Schedule{}, nil)
	repo.On("ListDoctorIDs").Return([]string{importDoctorA}, nil)
	repo.On("CreateSchedules", mock.MatchedBy(func(schedules []*types.Schedule) bool {
		return len(schedules) == 1
	})).Return(nil)

	rows := []types.ScheduleImportRow{
		{DoctorID: importDoctorA, WorkDate: "10.03.2025", StartTime: "09:00", EndTime: "17:00"},
		{DoctorID: "nope", WorkDate: "10.03.2025", StartTime: "09:00", EndTime: "17:00"},
	}
	report, err := svc.ImportSchedules(rows, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Skipped)
	repo.AssertExpectations(t)
}

func TestImportSchedules_AllRejectedSkipsPersist(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	existing := []*types.Schedule{{
		DoctorID: importDoctorA,
		WorkDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}}
	repo.On("GetSchedules", mock.Anything).Return(existing, nil)
	repo.On("ListDoctorIDs").Return([]string{importDoctorA}, nil)

	rows := []types.ScheduleImportRow{
		{DoctorID: importDoctorA, WorkDate: "10.03.2025", StartTime: "09:00", EndTime: "17:00"},
	}
	report, err := svc.ImportSchedules(rows, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	repo.AssertNotCalled(t, "CreateSchedules", mock.Anything)
}

func TestPurgeStaleSchedules_ReturnsRemovedIDs(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("PurgeSchedulesBefore", dayAt(0, 0)).Return([]string{"s1", "s2"}, nil)

	ids, err := svc.PurgeStaleSchedules(dayAt(8, 0), "user-1")

	assert.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestUpcomingAppointments_FiltersWindow(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	now := dayAt(9, 0)
	pending := []*types.Appointment{
		pendingAppt("a1", dayAt(9, 30), dayAt(10, 0)),
		pendingAppt("a2", dayAt(10, 0), dayAt(10, 30)), // exactly at now+lookahead
	}
	repo.On("GetPendingAppointmentsBetween", now, now.Add(time.Hour)).Return(pending, nil)

	upcoming, err := svc.UpcomingAppointments(now, time.Hour)

	assert.NoError(t, err)
	assert.Len(t, upcoming, 2)
}

func TestGetAppointments_InternalErrorWrapped(t *testing.T) {
	repo := new(MockSchedulingRepository)
	svc := newTestService(repo, nil)

	repo.On("GetAppointments", mock.Anything).Return(nil, errors.New("db down"))

	_, err := svc.GetAppointments(nil)

	var regErr *types.RegistryError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrorTypeInternal, regErr.Type)
}
