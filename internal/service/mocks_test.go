package service

import (
	"context"
	"io"
	"testing"
	"time"

	"equilibria/internal/database"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockRepo) UpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) CreatePractitioner(ctx context.Context, p *models.Practitioner) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockRepo) GetPractitioner(ctx context.Context, id int64) (*models.Practitioner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Practitioner), args.Error(1)
}
func (m *mockRepo) GetPractitionerByName(ctx context.Context, name string) (*models.Practitioner, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Practitioner), args.Error(1)
}
func (m *mockRepo) ListPractitioners(ctx context.Context) ([]models.Practitioner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Practitioner), args.Error(1)
}
func (m *mockRepo) UpdatePractitioner(ctx context.Context, p *models.Practitioner) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockRepo) DeletePractitioner(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) UpsertSchedule(ctx context.Context, s *models.Schedule) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockRepo) GetSchedule(ctx context.Context, practitionerID int64) (*models.Schedule, error) {
	args := m.Called(ctx, practitionerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}
func (m *mockRepo) ExistsScheduledConflict(ctx context.Context, practitionerID int64, date, clock string) (bool, error) {
	args := m.Called(ctx, practitionerID, date, clock)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockRepo) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *mockRepo) UpdateAppointmentStatus(ctx context.Context, id int64, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}
func (m *mockRepo) ListUserAppointments(ctx context.Context, userID int64) ([]models.Appointment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}
func (m *mockRepo) ListAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}
func (m *mockRepo) CreateRating(ctx context.Context, r *models.Rating) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockRepo) GetRatingByAppointment(ctx context.Context, appointmentID int64) (*models.Rating, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}
func (m *mockRepo) CreateExchange(ctx context.Context, e *models.AIExchange) error {
	return m.Called(ctx, e).Error(0)
}
func (m *mockRepo) ListUserExchanges(ctx context.Context, userID int64) ([]models.AIExchange, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AIExchange), args.Error(1)
}
func (m *mockRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockRepo) ListUserNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}
func (m *mockRepo) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}
func (m *mockRepo) MarkNotificationRead(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockStateRepo struct {
	mock.Mock
}

func (m *mockStateRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
func (m *mockStateRepo) GetPractitioners(ctx context.Context) ([]models.Practitioner, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.Practitioner), args.Bool(1), args.Error(2)
}
func (m *mockStateRepo) SetPractitioners(ctx context.Context, list []models.Practitioner) error {
	return m.Called(ctx, list).Error(0)
}
func (m *mockStateRepo) InvalidatePractitioners(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixedRand struct {
	next int
}

func (f *fixedRand) Intn(n int) int {
	return f.next % n
}
