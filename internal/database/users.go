package database

import (
	"context"
	"time"

	"equilibria/internal/models"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
        INSERT INTO users (username, email, first_name, last_name, password_hash, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash, now, now,
	)
	if err != nil {
		return translate("create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("create user", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// UpdateUser rewrites the profile fields of an existing user. The password
// hash is left untouched when the passed value is empty.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
        UPDATE users SET
            email = ?, first_name = ?, last_name = ?,
            password_hash = CASE WHEN ? = '' THEN password_hash ELSE ? END,
            updated_at = ?
        WHERE id = ?`,
		user.Email, user.FirstName, user.LastName, user.PasswordHash, user.PasswordHash, now, user.ID,
	)
	if err != nil {
		return translate("update user", err)
	}
	if err := expectOneRow(result, "user", user.ID); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr("get user", err, "user", id)
	}
	return user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr("get user", err, "user", username)
	}
	return user, nil
}

// DeleteUser removes the user together with their appointments, exchanges
// and notifications.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate("delete user", err)
	}
	return expectOneRow(result, "user", id)
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
