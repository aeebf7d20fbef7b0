package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/events"
	"equilibria/internal/metrics"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Book reserves a slot for the user. The store's unique index is the final
// word on the slot; the pre-check here only saves a write on the common path.
func (s *BookingService) Book(ctx context.Context, userID, practitionerID int64, date, clock string) (*models.Appointment, error) {
	date, clock, err := validateBooking(userID, practitionerID, date, clock)
	if err != nil {
		metrics.IncBooking(metrics.OutcomeInvalid)
		return nil, err
	}

	if _, err := s.repo.GetPractitioner(ctx, practitionerID); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	taken, err := s.repo.ExistsScheduledConflict(ctx, practitionerID, date, clock)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	if taken {
		metrics.IncBooking(metrics.OutcomeConflict)
		return nil, domain.NewSlotConflict(nil)
	}

	appt := &models.Appointment{
		UserID:         userID,
		PractitionerID: practitionerID,
		Date:           date,
		Time:           clock,
		Status:         models.StatusScheduled,
	}
	if err := s.repo.CreateAppointmentWithLock(ctx, appt); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	metrics.IncBooking(metrics.OutcomeBooked)
	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("user_id", userID).
		Int64("practitioner_id", practitionerID).
		Str("date", date).
		Str("time", clock).
		Msg("appointment booked")
	s.publishEvent(events.EventAppointmentBooked, appt)

	return appt, nil
}

// Cancel releases a scheduled appointment owned by userID. Appointments of
// other users are reported as not found.
func (s *BookingService) Cancel(ctx context.Context, appointmentID, userID int64) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "appointment", ID: appointmentID}
	}

	if err := s.transition(ctx, appt, models.StatusCancelled); err != nil {
		return nil, err
	}

	metrics.IncBooking(metrics.OutcomeCancelled)
	s.publishEvent(events.EventAppointmentCancelled, appt)
	return appt, nil
}

// Complete marks a scheduled appointment as held.
func (s *BookingService) Complete(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, appt, models.StatusCompleted); err != nil {
		return nil, err
	}

	metrics.IncBooking(metrics.OutcomeCompleted)
	s.publishEvent(events.EventAppointmentCompleted, appt)
	return appt, nil
}

func (s *BookingService) transition(ctx context.Context, appt *models.Appointment, to string) error {
	if !appt.IsScheduled() {
		return &domain.ConflictError{Reason: "appointment is " + appt.Status}
	}
	if err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, models.StatusScheduled, to); err != nil {
		return err
	}
	appt.Status = to
	appt.UpdatedAt = time.Now()
	return nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *BookingService) ListUserAppointments(ctx context.Context, userID int64) ([]models.Appointment, error) {
	return s.repo.ListUserAppointments(ctx, userID)
}

// ListAppointmentsByDateRange validates both bounds before hitting the store.
func (s *BookingService) ListAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error) {
	verr := &domain.ValidationError{}
	fromDate, fromOK := parseDateField(verr, "from", from)
	toDate, toOK := parseDateField(verr, "to", to)
	if fromOK && toOK && toDate.Before(fromDate) {
		verr.Add("to", "must not be before from")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByDateRange(ctx, fromDate.Format(models.DateLayout), toDate.Format(models.DateLayout))
}

func (s *BookingService) recordFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		metrics.IncBooking(metrics.OutcomeConflict)
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncBooking(metrics.OutcomeNotFound)
	default:
		metrics.IncBooking(metrics.OutcomeError)
		s.logger.Error().Err(err).Msg("booking failed")
	}
}

func (s *BookingService) publishEvent(eventType string, appt *models.Appointment) {
	if s.eventBus == nil {
		return
	}

	payload := events.AppointmentEventPayload{
		AppointmentID:    appt.ID,
		UserID:           appt.UserID,
		PractitionerID:   appt.PractitionerID,
		PractitionerName: appt.PractitionerName,
		Date:             appt.Date,
		Time:             appt.Time,
		Status:           appt.Status,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("appointment_id", appt.ID).Msg("publish event error")
	}
}

// validateBooking reports every missing or malformed input at once and
// returns date and time in canonical form. Seconds are accepted and dropped.
func validateBooking(userID, practitionerID int64, date, clock string) (string, string, error) {
	verr := &domain.ValidationError{}

	if userID <= 0 {
		verr.Add("user_id", "required")
	}
	if practitionerID <= 0 {
		verr.Add("practitioner_id", "required")
	}

	d, _ := parseDateField(verr, "date", date)

	var t time.Time
	clock = strings.TrimSpace(clock)
	if clock == "" {
		verr.Add("time", "required")
	} else if parsed, err := parseClock(clock); err != nil {
		verr.Add("time", "must be HH:MM")
	} else {
		t = parsed
	}

	if err := verr.OrNil(); err != nil {
		return "", "", err
	}
	return d.Format(models.DateLayout), t.Format(models.TimeLayout), nil
}

func parseDateField(verr *domain.ValidationError, field, value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		verr.Add(field, "required")
		return time.Time{}, false
	}
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		verr.Add(field, "must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parseClock(value string) (time.Time, error) {
	t, err := time.Parse(models.TimeLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", value)
}
