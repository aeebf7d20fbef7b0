package service

import (
	"context"
	"fmt"

	"equilibria/internal/domain"
	"equilibria/internal/events"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

// Subscriber is the part of the event bus the notification service needs.
type Subscriber interface {
	Subscribe(eventType string, handler events.EventHandler)
}

// NotificationService turns appointment events into user notifications.
type NotificationService struct {
	repo   domain.NotificationRepository
	logger *zerolog.Logger
}

func NewNotificationService(repo domain.NotificationRepository, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// Subscribe attaches the service to the appointment lifecycle events.
func (s *NotificationService) Subscribe(bus Subscriber) {
	bus.Subscribe(events.EventAppointmentBooked, s.handle)
	bus.Subscribe(events.EventAppointmentCancelled, s.handle)
	bus.Subscribe(events.EventAppointmentCompleted, s.handle)
}

func (s *NotificationService) handle(event *events.Event) error {
	var p events.AppointmentEventPayload
	if err := event.Decode(&p); err != nil {
		return err
	}

	n := &models.Notification{
		UserID:  p.UserID,
		Message: notificationText(event.Type, p),
		SendAt:  event.CreatedAt,
	}
	if err := s.repo.CreateNotification(context.Background(), n); err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Int64("appointment_id", p.AppointmentID).Msg("failed to create notification")
		return err
	}
	return nil
}

func notificationText(eventType string, p events.AppointmentEventPayload) string {
	switch eventType {
	case events.EventAppointmentBooked:
		return fmt.Sprintf("Consulta agendada com sucesso para %s às %s com %s!", p.Date, p.Time, p.PractitionerName)
	case events.EventAppointmentCancelled:
		return fmt.Sprintf("Sua consulta de %s às %s com %s foi cancelada.", p.Date, p.Time, p.PractitionerName)
	case events.EventAppointmentCompleted:
		return fmt.Sprintf("Como foi sua consulta com %s? Deixe sua avaliação.", p.PractitionerName)
	default:
		return fmt.Sprintf("Atualização da consulta de %s às %s.", p.Date, p.Time)
	}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.repo.ListUserNotifications(ctx, userID)
}

// MarkRead flags a notification as read. Notifications of other users are
// reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	n, err := s.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return &domain.NotFoundError{Entity: "notification", ID: notificationID}
	}
	if n.Read {
		return nil
	}
	return s.repo.MarkNotificationRead(ctx, notificationID)
}
