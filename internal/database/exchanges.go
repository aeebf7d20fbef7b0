package database

import (
	"context"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/models"
)

// CreateExchange appends one chat round trip. Exchanges are never updated.
func (db *DB) CreateExchange(ctx context.Context, ex *models.AIExchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO ai_exchanges (user_id, message, reply, created_at) VALUES (?, ?, ?, ?)`,
		ex.UserID, ex.Message, ex.Reply, ex.CreatedAt,
	)
	if err != nil {
		err = translate("create exchange", err)
		if nf, ok := err.(*domain.NotFoundError); ok {
			nf.Entity, nf.ID = "user", ex.UserID
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("create exchange", err)
	}
	ex.ID = id
	return nil
}

func (db *DB) ListUserExchanges(ctx context.Context, userID int64) ([]models.AIExchange, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, user_id, message, reply, created_at
        FROM ai_exchanges WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, translate("list exchanges", err)
	}
	defer rows.Close()

	exchanges := make([]models.AIExchange, 0)
	for rows.Next() {
		var ex models.AIExchange
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Message, &ex.Reply, &ex.CreatedAt); err != nil {
			return nil, translate("scan exchange", err)
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list exchanges", err)
	}
	return exchanges, nil
}
