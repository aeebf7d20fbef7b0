package domain

import (
	"context"
	"time"

	"equilibria/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type PractitionerRepository interface {
	CreatePractitioner(ctx context.Context, p *models.Practitioner) error
	GetPractitioner(ctx context.Context, id int64) (*models.Practitioner, error)
	GetPractitionerByName(ctx context.Context, name string) (*models.Practitioner, error)
	ListPractitioners(ctx context.Context) ([]models.Practitioner, error)
	UpdatePractitioner(ctx context.Context, p *models.Practitioner) error
	DeletePractitioner(ctx context.Context, id int64) error
	UpsertSchedule(ctx context.Context, s *models.Schedule) error
	GetSchedule(ctx context.Context, practitionerID int64) (*models.Schedule, error)
}

type AppointmentRepository interface {
	ExistsScheduledConflict(ctx context.Context, practitionerID int64, date, clock string) (bool, error)
	CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, fromStatus, toStatus string) error
	ListUserAppointments(ctx context.Context, userID int64) ([]models.Appointment, error)
	ListAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error)
}

type RatingRepository interface {
	CreateRating(ctx context.Context, r *models.Rating) error
	GetRatingByAppointment(ctx context.Context, appointmentID int64) (*models.Rating, error)
}

type ExchangeRepository interface {
	CreateExchange(ctx context.Context, e *models.AIExchange) error
	ListUserExchanges(ctx context.Context, userID int64) ([]models.AIExchange, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListUserNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
}

// Repository is the whole entity store.
type Repository interface {
	UserRepository
	PractitionerRepository
	AppointmentRepository
	RatingRepository
	ExchangeRepository
	NotificationRepository
}

// StateRepository keeps short-lived request state: rate limit counters
// and the practitioner list cache.
type StateRepository interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	GetPractitioners(ctx context.Context) ([]models.Practitioner, bool, error)
	SetPractitioners(ctx context.Context, list []models.Practitioner) error
	InvalidatePractitioners(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	Book(ctx context.Context, userID, practitionerID int64, date, clock string) (*models.Appointment, error)
	Cancel(ctx context.Context, appointmentID, userID int64) (*models.Appointment, error)
	Complete(ctx context.Context, appointmentID int64) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	ListUserAppointments(ctx context.Context, userID int64) ([]models.Appointment, error)
	ListAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error)
}

type DirectoryService interface {
	ListPractitioners(ctx context.Context) ([]models.Practitioner, error)
	GetPractitioner(ctx context.Context, id int64) (*models.Practitioner, error)
	GetSchedule(ctx context.Context, practitionerID int64) (*models.Schedule, error)
	CreatePractitioner(ctx context.Context, name string, schedule *models.Schedule) (*models.Practitioner, error)
}

type ChatResponder interface {
	Respond(ctx context.Context, message string, userID *int64) (*models.ChatReply, error)
	History(ctx context.Context, userID int64) ([]models.AIExchange, error)
}

type RatingService interface {
	Rate(ctx context.Context, userID, appointmentID int64, score int, comment string) (*models.Rating, error)
	GetRating(ctx context.Context, userID, appointmentID int64) (*models.Rating, error)
}

type NotificationService interface {
	ListForUser(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

type UserService interface {
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type ContactService interface {
	Submit(ctx context.Context, msg models.ContactMessage) error
}

// RequestLimiter enforces a per-user request budget per scope. It returns
// ErrRateLimited once the budget is spent.
type RequestLimiter interface {
	Allow(ctx context.Context, scope string, userID int64) error
}
