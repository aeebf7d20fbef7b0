package database

import (
	"context"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	now := time.Now()
	if n.SendAt.IsZero() {
		n.SendAt = now
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, message, send_at, read, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.Message, n.SendAt, n.Read, now,
	)
	if err != nil {
		err = translate("create notification", err)
		if nf, ok := err.(*domain.NotFoundError); ok {
			nf.Entity, nf.ID = "user", n.UserID
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("create notification", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

// ListUserNotifications returns the newest notifications first.
func (db *DB) ListUserNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, user_id, message, send_at, read, created_at
        FROM notifications WHERE user_id = ? ORDER BY send_at DESC, id DESC`, userID)
	if err != nil {
		return nil, translate("list notifications", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, translate("scan notification", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list notifications", err)
	}
	return notifications, nil
}

func (db *DB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, user_id, message, send_at, read, created_at FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, notFoundOr("get notification", err, "notification", id)
	}
	return n, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return translate("mark notification read", err)
	}
	return expectOneRow(result, "notification", id)
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.SendAt, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
