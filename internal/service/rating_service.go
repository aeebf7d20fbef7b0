package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"equilibria/internal/domain"
	"equilibria/internal/events"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

const maxCommentLength = 1000

type RatingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewRatingService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *RatingService {
	return &RatingService{repo: repo, eventBus: eventBus, logger: logger}
}

// Rate stores the user's rating of one of their completed appointments.
// Each appointment takes at most one rating.
func (s *RatingService) Rate(ctx context.Context, userID, appointmentID int64, score int, comment string) (*models.Rating, error) {
	comment = strings.TrimSpace(comment)

	verr := &domain.ValidationError{}
	if score < models.MinRatingScore || score > models.MaxRatingScore {
		verr.Add("score", "must be between 1 and 5")
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		verr.Add("comment", "too long")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "appointment", ID: appointmentID}
	}
	if appt.Status != models.StatusCompleted {
		return nil, &domain.ConflictError{Reason: "only completed appointments can be rated"}
	}

	rating := &models.Rating{AppointmentID: appointmentID, Score: score, Comment: comment}
	if err := s.repo.CreateRating(ctx, rating); err != nil {
		if errors.Is(err, domain.ErrConstraint) {
			return nil, &domain.ConflictError{Reason: "appointment already rated", Err: err}
		}
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.AppointmentEventPayload{
			AppointmentID:    appt.ID,
			UserID:           appt.UserID,
			PractitionerID:   appt.PractitionerID,
			PractitionerName: appt.PractitionerName,
			Date:             appt.Date,
			Time:             appt.Time,
			Status:           appt.Status,
			Score:            score,
		}
		if err := s.eventBus.PublishJSON(events.EventAppointmentRated, payload); err != nil {
			s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("publish event error")
		}
	}
	return rating, nil
}

// GetRating returns the rating of an appointment owned by userID.
func (s *RatingService) GetRating(ctx context.Context, userID, appointmentID int64) (*models.Rating, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "appointment", ID: appointmentID}
	}
	return s.repo.GetRatingByAppointment(ctx, appointmentID)
}
