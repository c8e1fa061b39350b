package notifications

import (
	"context"
	"strings"
	"time"

	"colourstream/internal/config"
	"colourstream/internal/uploads"
)

const userAgent = "ColourStream-Go/0.1.0"

// Service defines the notification surface exposed to the rest of the system.
type Service interface {
	// NotifyUploadProgress posts or edits the chat message for one upload.
	NotifyUploadProgress(ctx context.Context, rec uploads.Record) error
	// NotifyRoomCreated announces a freshly minted streaming room.
	NotifyRoomCreated(ctx context.Context, roomName string) error
	// NotifyError reports a failure with an optional context label.
	NotifyError(ctx context.Context, err error, contextLabel string) error
	// TestNotification sends a throwaway message to verify delivery.
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by Telegram when
// configured. When no bot token is configured, a noop implementation is
// returned.
func NewService(cfg *config.Config) Service {
	token := strings.TrimSpace(cfg.Telegram.BotToken)
	chatID := strings.TrimSpace(cfg.Telegram.ChatID)
	if !cfg.Telegram.Enabled || token == "" || chatID == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Telegram.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return newTelegramService(cfg.Telegram.BaseURL, token, chatID, timeout)
}

type noopService struct{}

func (noopService) NotifyUploadProgress(context.Context, uploads.Record) error { return nil }
func (noopService) NotifyRoomCreated(context.Context, string) error            { return nil }
func (noopService) NotifyError(context.Context, error, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
