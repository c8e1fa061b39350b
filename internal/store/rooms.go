package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const roomColumns = "id, name, mirotalk_room_id, stream_key, password_hash, expires_at, created_at, updated_at"

// CreateRoom persists a new room.
func (s *Store) CreateRoom(ctx context.Context, room *Room) error {
	if room == nil {
		return errors.New("room is nil")
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Name,
		room.MiroTalkRoomID,
		room.StreamKey,
		nullableString(room.PasswordHash),
		nullableTime(room.ExpiresAt),
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetRoom fetches a room by identifier, returning nil when none exists.
func (s *Store) GetRoom(ctx context.Context, id string) (*Room, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by creation time.
func (s *Store) ListRooms(ctx context.Context) ([]*Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room by identifier. Returns false when no row matched.
func (s *Store) DeleteRoom(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete room: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteExpiredRooms removes rooms whose expiry has passed.
func (s *Store) DeleteExpiredRooms(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rooms WHERE expires_at IS NOT NULL AND expires_at < ?`,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired rooms: %w", err)
	}
	return res.RowsAffected()
}

func scanRoom(scanner interface{ Scan(dest ...any) error }) (*Room, error) {
	var (
		room         Room
		passwordHash sql.NullString
		expiresRaw   sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&room.ID,
		&room.Name,
		&room.MiroTalkRoomID,
		&room.StreamKey,
		&passwordHash,
		&expiresRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	room.PasswordHash = passwordHash.String
	room.ExpiresAt = scanNullableTime(expiresRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		room.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		room.UpdatedAt = updated
	}
	return &room, nil
}
