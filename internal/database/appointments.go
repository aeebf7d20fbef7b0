package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/models"
)

const appointmentSelect = `
    SELECT a.id, a.user_id, u.username, u.first_name, u.last_name,
           a.practitioner_id, p.name, a.date, a.time, a.status, a.created_at, a.updated_at
    FROM appointments a
    JOIN practitioners p ON p.id = a.practitioner_id
    JOIN users u ON u.id = a.user_id`

// ExistsScheduledConflict reports whether a scheduled appointment already
// holds the slot. Cancelled and completed appointments never conflict.
func (db *DB) ExistsScheduledConflict(ctx context.Context, practitionerID int64, date, clock string) (bool, error) {
	return existsScheduled(ctx, db.DB, practitionerID, date, clock)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func existsScheduled(ctx context.Context, q queryer, practitionerID int64, date, clock string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM appointments
            WHERE practitioner_id = ? AND date = ? AND time = ? AND status = ?
        )`, practitionerID, date, clock, models.StatusScheduled,
	).Scan(&exists)
	if err != nil {
		return false, translate("check slot", err)
	}
	return exists, nil
}

// CreateAppointmentWithLock checks both parents and the slot, then inserts,
// all inside one transaction. Losing a race on the slot surfaces as the same
// ConflictError the pre-check would return.
func (db *DB) CreateAppointmentWithLock(ctx context.Context, appt *models.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var owner models.User
	err = tx.QueryRowContext(ctx, `SELECT username, first_name, last_name FROM users WHERE id = ?`, appt.UserID).
		Scan(&owner.Username, &owner.FirstName, &owner.LastName)
	if err != nil {
		return notFoundOr("check user", err, "user", appt.UserID)
	}

	var practitionerName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM practitioners WHERE id = ?`, appt.PractitionerID).
		Scan(&practitionerName)
	if err != nil {
		return notFoundOr("check practitioner", err, "practitioner", appt.PractitionerID)
	}

	taken, err := existsScheduled(ctx, tx, appt.PractitionerID, appt.Date, appt.Time)
	if err != nil {
		return err
	}
	if taken {
		return domain.NewSlotConflict(nil)
	}

	if appt.Status == "" {
		appt.Status = models.StatusScheduled
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
        INSERT INTO appointments (user_id, practitioner_id, date, time, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appt.UserID, appt.PractitionerID, appt.Date, appt.Time, appt.Status, now, now,
	)
	if err != nil {
		return slotOr(translate("insert appointment", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("insert appointment", err)
	}

	if err := tx.Commit(); err != nil {
		return slotOr(translate("commit appointment", err))
	}

	appt.ID = id
	appt.PractitionerName = practitionerName
	appt.UserName = owner.DisplayName()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	return nil
}

func slotOr(err error) error {
	if isSlotViolation(err) {
		return domain.NewSlotConflict(err)
	}
	return err
}

func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	row := db.QueryRowContext(ctx, appointmentSelect+` WHERE a.id = ?`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, notFoundOr("get appointment", err, "appointment", id)
	}
	return appt, nil
}

// UpdateAppointmentStatus moves an appointment from one status to another.
// It fails with NotFoundError for an unknown id and ConflictError when the
// appointment is no longer in fromStatus.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		toStatus, time.Now(), id, fromStatus,
	)
	if err != nil {
		return slotOr(translate("update appointment status", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return translate("update appointment status", err)
	}
	if rows > 0 {
		return nil
	}

	var current string
	err = db.QueryRowContext(ctx, `SELECT status FROM appointments WHERE id = ?`, id).Scan(&current)
	if err != nil {
		return notFoundOr("get appointment status", err, "appointment", id)
	}
	return &domain.ConflictError{Reason: fmt.Sprintf("appointment is %s", current)}
}

func (db *DB) ListUserAppointments(ctx context.Context, userID int64) ([]models.Appointment, error) {
	return db.listAppointments(ctx, appointmentSelect+` WHERE a.user_id = ? ORDER BY a.date, a.time, a.id`, userID)
}

// ListAppointmentsByDateRange returns appointments of every status whose date
// falls in [from, to], both inclusive.
func (db *DB) ListAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error) {
	return db.listAppointments(ctx,
		appointmentSelect+` WHERE a.date >= ? AND a.date <= ? ORDER BY a.date, a.time, a.id`, from, to)
}

func (db *DB) listAppointments(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list appointments", err)
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, translate("scan appointment", err)
		}
		appointments = append(appointments, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list appointments", err)
	}
	return appointments, nil
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var (
		a     models.Appointment
		owner models.User
	)
	err := row.Scan(
		&a.ID, &a.UserID, &owner.Username, &owner.FirstName, &owner.LastName,
		&a.PractitionerID, &a.PractitionerName,
		&a.Date, &a.Time, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.UserName = owner.DisplayName()
	return &a, nil
}

// IsSlotConflict reports whether err came from the slot invariant.
func IsSlotConflict(err error) bool {
	var ce *domain.ConflictError
	return errors.As(err, &ce) && ce.Reason == domain.SlotTakenReason
}
