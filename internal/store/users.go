package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetUserByUsername fetches a user, returning nil when none exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?`,
		username,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SeedAdmin creates the admin user if it does not exist yet. The hash is only
// applied on first creation; an existing user's password is left alone.
func (s *Store) SeedAdmin(ctx context.Context, username, passwordHash string) error {
	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, timestamp, timestamp,
	)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}

// UpdateUserPassword replaces the stored password hash for a user.
func (s *Store) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?`,
		passwordHash, time.Now().UTC().Format(time.RFC3339Nano), username,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %q not found", username)
	}
	return nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		user       User
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		user.UpdatedAt = updated
	}
	return &user, nil
}
