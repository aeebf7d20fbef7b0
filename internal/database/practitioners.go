package database

import (
	"context"
	"time"

	"equilibria/internal/models"
)

func (db *DB) CreatePractitioner(ctx context.Context, p *models.Practitioner) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO practitioners (name, created_at, updated_at) VALUES (?, ?, ?)`,
		p.Name, now, now,
	)
	if err != nil {
		return translate("create practitioner", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("create practitioner", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetPractitioner(ctx context.Context, id int64) (*models.Practitioner, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM practitioners WHERE id = ?`, id)
	p, err := scanPractitioner(row)
	if err != nil {
		return nil, notFoundOr("get practitioner", err, "practitioner", id)
	}
	return p, nil
}

// GetPractitionerByName returns the first practitioner registered under name.
// Names are not unique; seeding uses this to stay idempotent.
func (db *DB) GetPractitionerByName(ctx context.Context, name string) (*models.Practitioner, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM practitioners WHERE name = ? ORDER BY id LIMIT 1`, name)
	p, err := scanPractitioner(row)
	if err != nil {
		return nil, notFoundOr("get practitioner", err, "practitioner", name)
	}
	return p, nil
}

func (db *DB) ListPractitioners(ctx context.Context) ([]models.Practitioner, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM practitioners ORDER BY name, id`)
	if err != nil {
		return nil, translate("list practitioners", err)
	}
	defer rows.Close()

	practitioners := make([]models.Practitioner, 0)
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, translate("scan practitioner", err)
		}
		practitioners = append(practitioners, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list practitioners", err)
	}
	return practitioners, nil
}

func (db *DB) UpdatePractitioner(ctx context.Context, p *models.Practitioner) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`UPDATE practitioners SET name = ?, updated_at = ? WHERE id = ?`, p.Name, now, p.ID)
	if err != nil {
		return translate("update practitioner", err)
	}
	if err := expectOneRow(result, "practitioner", p.ID); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// DeletePractitioner cascades to the schedule and every appointment.
func (db *DB) DeletePractitioner(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM practitioners WHERE id = ?`, id)
	if err != nil {
		return translate("delete practitioner", err)
	}
	return expectOneRow(result, "practitioner", id)
}

// UpsertSchedule stores the practitioner's free-text availability, replacing
// any previous one.
func (db *DB) UpsertSchedule(ctx context.Context, s *models.Schedule) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
        INSERT INTO schedules (practitioner_id, available_days, available_hours, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(practitioner_id) DO UPDATE SET
            available_days = excluded.available_days,
            available_hours = excluded.available_hours,
            updated_at = excluded.updated_at`,
		s.PractitionerID, s.AvailableDays, s.AvailableHours, now, now,
	)
	if err != nil {
		return translate("upsert schedule", err)
	}

	stored, err := db.GetSchedule(ctx, s.PractitionerID)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

func (db *DB) GetSchedule(ctx context.Context, practitionerID int64) (*models.Schedule, error) {
	var s models.Schedule
	err := db.QueryRowContext(ctx, `
        SELECT id, practitioner_id, available_days, available_hours, created_at, updated_at
        FROM schedules WHERE practitioner_id = ?`, practitionerID,
	).Scan(&s.ID, &s.PractitionerID, &s.AvailableDays, &s.AvailableHours, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFoundOr("get schedule", err, "schedule", practitionerID)
	}
	return &s, nil
}

func scanPractitioner(row rowScanner) (*models.Practitioner, error) {
	var p models.Practitioner
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
