package database

import (
	"context"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/models"
)

// CreateRating stores the single rating an appointment may carry. A second
// rating for the same appointment is a ConstraintViolation.
func (db *DB) CreateRating(ctx context.Context, rating *models.Rating) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO ratings (appointment_id, score, comment, created_at) VALUES (?, ?, ?, ?)`,
		rating.AppointmentID, rating.Score, rating.Comment, now,
	)
	if err != nil {
		err = translate("create rating", err)
		if nf, ok := err.(*domain.NotFoundError); ok {
			nf.Entity, nf.ID = "appointment", rating.AppointmentID
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("create rating", err)
	}
	rating.ID = id
	rating.CreatedAt = now
	return nil
}

func (db *DB) GetRatingByAppointment(ctx context.Context, appointmentID int64) (*models.Rating, error) {
	var r models.Rating
	err := db.QueryRowContext(ctx,
		`SELECT id, appointment_id, score, comment, created_at FROM ratings WHERE appointment_id = ?`,
		appointmentID,
	).Scan(&r.ID, &r.AppointmentID, &r.Score, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, notFoundOr("get rating", err, "rating", appointmentID)
	}
	return &r, nil
}
