package worker

import (
	"context"
	"fmt"
	"time"

	"equilibria/internal/config"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

type AppointmentLister interface {
	ListAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error)
}

type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// ReminderWorker leaves a notification for every patient with a
// scheduled appointment on the next day.
type ReminderWorker struct {
	appointments  AppointmentLister
	notifications NotificationWriter
	retryPolicy   RetryPolicy
	hour          int
	minute        int
	now           func() time.Time
	logger        *zerolog.Logger
}

func NewReminderWorker(appointments AppointmentLister, notifications NotificationWriter, cfg config.ReminderConfig, logger *zerolog.Logger) (*ReminderWorker, error) {
	at, err := time.Parse(models.TimeLayout, cfg.Time)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder time %q: %w", cfg.Time, err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &ReminderWorker{
		appointments:  appointments,
		notifications: notifications,
		retryPolicy: RetryPolicy{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  2 * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		},
		hour:   at.Hour(),
		minute: at.Minute(),
		now:    time.Now,
		logger: logger,
	}, nil
}

// Start blocks until ctx is done, sending reminders once a day at the
// configured time.
func (w *ReminderWorker) Start(ctx context.Context) {
	timer := time.NewTimer(w.untilNextRun())
	defer timer.Stop()

	w.logger.Info().Int("hour", w.hour).Int("minute", w.minute).Msg("reminder worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			sent, err := w.SendTomorrowReminders(ctx)
			if err != nil {
				w.logger.Error().Err(err).Msg("reminder run failed")
			} else {
				w.logger.Info().Int("sent", sent).Msg("reminders sent")
			}
			timer.Reset(w.untilNextRun())
		}
	}
}

// SendTomorrowReminders notifies the owners of tomorrow's scheduled
// appointments and returns how many notifications were written. A write
// that still fails after its retries is logged and skipped.
func (w *ReminderWorker) SendTomorrowReminders(ctx context.Context) (int, error) {
	now := w.now()
	tomorrow := now.AddDate(0, 0, 1).Format(models.DateLayout)

	appointments, err := w.appointments.ListAppointmentsByDateRange(ctx, tomorrow, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("list appointments for %s: %w", tomorrow, err)
	}

	sent := 0
	for i := range appointments {
		appt := &appointments[i]
		if !appt.IsScheduled() {
			continue
		}

		n := &models.Notification{
			UserID:  appt.UserID,
			Message: reminderText(appt),
			SendAt:  now,
		}
		err := w.retryPolicy.Do(ctx, func(ctx context.Context) error {
			return w.notifications.CreateNotification(ctx, n)
		})
		if err != nil {
			w.logger.Error().Err(err).Int64("appointment_id", appt.ID).Int64("user_id", appt.UserID).Msg("reminder: create notification error")
			continue
		}
		sent++
	}
	return sent, nil
}

func reminderText(a *models.Appointment) string {
	return fmt.Sprintf("Lembrete: amanhã você tem consulta com %s às %s.", a.PractitionerName, a.Time)
}

func (w *ReminderWorker) untilNextRun() time.Duration {
	now := w.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), w.hour, w.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
