package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"colourstream/internal/logging"
	"colourstream/internal/mirotalk"
	"colourstream/internal/store"
)

var (
	// ErrRoomNotFound is returned when a room id does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrWrongPassword is returned when a guest join password is wrong.
	ErrWrongPassword = errors.New("wrong room password")
)

// Service manages room records and their streaming credentials.
type Service struct {
	store  *store.Store
	tokens *mirotalk.TokenService
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a rooms service backed by st.
func NewService(st *store.Store, tokens *mirotalk.TokenService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:  st,
		tokens: tokens,
		logger: logging.NewComponentLogger(logger, "rooms"),
		now:    time.Now,
	}
}

// CreateParams describes a room to create. Password is optional; when set,
// guests must supply it to receive a join link.
type CreateParams struct {
	Name      string
	Password  string
	ExpiresAt *time.Time
}

// Room is a room record with its plaintext stream key, as returned to admins.
type Room struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	MiroTalkRoomID string     `json:"mirotalkRoomId"`
	StreamKey      string     `json:"streamKey"`
	HasPassword    bool       `json:"hasPassword"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Create mints credentials for a new room and persists it.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Room, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, errors.New("room name is required")
	}

	record := &store.Room{
		ID:             uuid.NewString(),
		Name:           name,
		MiroTalkRoomID: uuid.NewString(),
		StreamKey:      newStreamKey(),
		ExpiresAt:      params.ExpiresAt,
	}
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		record.PasswordHash = string(hash)
	}

	if err := s.store.CreateRoom(ctx, record); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	s.logger.Info("room created",
		logging.String(logging.FieldRoomID, record.ID),
		logging.String("name", record.Name))
	return fromStore(record), nil
}

// Get returns a room by id.
func (s *Service) Get(ctx context.Context, id string) (*Room, error) {
	record, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if record == nil {
		return nil, ErrRoomNotFound
	}
	return fromStore(record), nil
}

// List returns all rooms ordered by creation time.
func (s *Service) List(ctx context.Context) ([]*Room, error) {
	records, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	result := make([]*Room, 0, len(records))
	for i := range records {
		result = append(result, fromStore(records[i]))
	}
	return result, nil
}

// Delete removes a room. Unknown ids return ErrRoomNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteRoom(ctx, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if !deleted {
		return ErrRoomNotFound
	}
	s.logger.Info("room deleted", logging.String(logging.FieldRoomID, id))
	return nil
}

// JoinLink validates the room password and returns a signed conference link.
// Presenters skip the password check.
func (s *Service) JoinLink(ctx context.Context, id, displayName, password string, presenter bool) (string, error) {
	record, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get room: %w", err)
	}
	if record == nil {
		return "", ErrRoomNotFound
	}
	if record.Expired(s.now()) {
		return "", ErrRoomNotFound
	}
	if !presenter && record.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
			return "", ErrWrongPassword
		}
	}

	token, err := s.tokens.IssueToken(displayName, password, presenter)
	if err != nil {
		return "", err
	}
	return s.tokens.JoinURL(record.MiroTalkRoomID, token, displayName), nil
}

// CleanupExpired removes rooms whose expiry has passed and returns the count.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpiredRooms(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired rooms: %w", err)
	}
	if removed > 0 {
		s.logger.Info("expired rooms removed", logging.Int64("count", removed))
	}
	return removed, nil
}

func fromStore(record *store.Room) *Room {
	return &Room{
		ID:             record.ID,
		Name:           record.Name,
		MiroTalkRoomID: record.MiroTalkRoomID,
		StreamKey:      record.StreamKey,
		HasPassword:    record.PasswordHash != "",
		ExpiresAt:      record.ExpiresAt,
		CreatedAt:      record.CreatedAt,
	}
}

func newStreamKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
