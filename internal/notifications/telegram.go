package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"colourstream/internal/uploads"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

type telegramService struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client

	mu         sync.Mutex
	messageIDs map[string]int64
}

func newTelegramService(baseURL, token, chatID string, timeout time.Duration) *telegramService {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &telegramService{
		baseURL:    baseURL,
		token:      token,
		chatID:     chatID,
		client:     &http.Client{Timeout: timeout},
		messageIDs: make(map[string]int64),
	}
}

func (t *telegramService) NotifyUploadProgress(ctx context.Context, rec uploads.Record) error {
	text := formatUploadMessage(rec)

	t.mu.Lock()
	messageID, known := t.messageIDs[rec.ID]
	t.mu.Unlock()

	if !known {
		id, err := t.sendMessage(ctx, text)
		if err != nil {
			return err
		}
		t.mu.Lock()
		if rec.Complete {
			delete(t.messageIDs, rec.ID)
		} else {
			t.messageIDs[rec.ID] = id
		}
		t.mu.Unlock()
		return nil
	}

	if err := t.editMessage(ctx, messageID, text); err != nil {
		return err
	}
	if rec.Complete {
		t.mu.Lock()
		delete(t.messageIDs, rec.ID)
		t.mu.Unlock()
	}
	return nil
}

func (t *telegramService) NotifyRoomCreated(ctx context.Context, roomName string) error {
	_, err := t.sendMessage(ctx, fmt.Sprintf("🎥 Room created: %s", strings.TrimSpace(roomName)))
	return err
}

func (t *telegramService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	_, sendErr := t.sendMessage(ctx, builder.String())
	return sendErr
}

func (t *telegramService) TestNotification(ctx context.Context) error {
	_, err := t.sendMessage(ctx, "🧪 ColourStream notification test")
	return err
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id,omitempty"`
	Text      string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (t *telegramService) sendMessage(ctx context.Context, text string) (int64, error) {
	resp, err := t.call(ctx, "sendMessage", telegramRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return 0, err
	}
	return resp.Result.MessageID, nil
}

func (t *telegramService) editMessage(ctx context.Context, messageID int64, text string) error {
	_, err := t.call(ctx, "editMessageText", telegramRequest{
		ChatID:    t.chatID,
		MessageID: messageID,
		Text:      text,
	})
	return err
}

func (t *telegramService) call(ctx context.Context, method string, payload telegramRequest) (*telegramResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send telegram %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 8192))
	if httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram %s returned %d: %s", method, httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var resp telegramResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode telegram response: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram %s rejected: %s", method, resp.Description)
	}
	return &resp, nil
}

func formatUploadMessage(rec uploads.Record) string {
	var builder strings.Builder
	if rec.Complete {
		builder.WriteString("✅ Upload complete: ")
	} else {
		builder.WriteString("📤 Uploading: ")
	}
	builder.WriteString(rec.Filename())

	if client := rec.Metadata[uploads.MetaClient]; client != "" {
		builder.WriteString("\nClient: ")
		builder.WriteString(client)
	}
	if project := rec.Metadata[uploads.MetaProject]; project != "" {
		builder.WriteString("\nProject: ")
		builder.WriteString(project)
	}

	if rec.Size > 0 {
		builder.WriteString(fmt.Sprintf("\nProgress: %.1f%% (%s / %s)",
			rec.Percent(), formatBytes(rec.Offset), formatBytes(rec.Size)))
	} else {
		builder.WriteString(fmt.Sprintf("\nProgress: %s", formatBytes(rec.Offset)))
	}
	if !rec.Complete && rec.Speed > 0 {
		builder.WriteString(fmt.Sprintf("\nSpeed: %s/s", formatBytes(int64(rec.Speed))))
	}
	if errText := rec.Metadata[uploads.MetaError]; errText != "" {
		builder.WriteString("\n⚠️ ")
		builder.WriteString(errText)
	}
	return builder.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
