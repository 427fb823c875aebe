package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lifelink/bloodcamp/internal/model"
)

// CreateUser creates a new user. hospital is the display name claim for
// HOSPITAL users and should be empty for the other roles.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role, hospital string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, hospital) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, hospital,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u := &model.User{}
	var hospital sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, hospital, created_at, deleted_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &hospital, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.Hospital = hospital.String
	return u, nil
}

// GetUserByUsername returns a user by username. A reused username can match
// both a live row and soft-deleted ones; the live row wins.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u := &model.User{}
	var hospital sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, hospital, created_at, deleted_at
		 FROM users WHERE username = ?
		 ORDER BY (deleted_at IS NULL) DESC LIMIT 1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &hospital, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	u.Hospital = hospital.String
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, username, password_hash, role, hospital, created_at, deleted_at
		 FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var hospital sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &hospital, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Hospital = hospital.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's role and hospital claim.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role, hospital string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET role = ?, hospital = ? WHERE id = ? AND deleted_at IS NULL`,
		role, hospital, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user so the username can be audited and reused.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
