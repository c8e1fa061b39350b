package store

import "time"

// User is an admin account persisted in SQLite.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room couples streaming credentials with a MiroTalk conference room.
type Room struct {
	ID             string
	Name           string
	MiroTalkRoomID string
	StreamKey      string
	PasswordHash   string
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the room's expiry has passed at the given instant.
func (r Room) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// UploadLink is a tokenized invitation allowing an external client to upload
// into a named client/project bucket.
type UploadLink struct {
	Token       string
	ClientName  string
	ProjectName string
	ExpiresAt   *time.Time
	UsedCount   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the link's expiry has passed at the given instant.
func (l UploadLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Stats aggregates table counts for diagnostics.
type Stats struct {
	Users       int
	Rooms       int
	UploadLinks int
}
