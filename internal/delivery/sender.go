package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"newsrelay/internal/logger"
)

// ParseModeMarkdownV2 is the rich-text mode used for every relay message.
// Content must go through EscapeMarkdownV2 before being framed for it.
const ParseModeMarkdownV2 = "MarkdownV2"

// Sender is the chat transport capability: one message to one destination.
type Sender interface {
	Send(ctx context.Context, chatID, text, parseMode string) error
}

// Telegram sends through the Bot API. A single attempt per call; retry
// policy belongs to the fanout layer, which must not double-send.
type Telegram struct {
	token  string
	client *http.Client
}

func NewTelegram(token string) *Telegram {
	return &Telegram{
		token:  token,
		client: &http.Client{},
	}
}

func (t *Telegram) Send(ctx context.Context, chatID, text, parseMode string) error {
	if t.token == "" {
		return errors.New("telegram bot token is not configured")
	}

	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}

// Console is the development-mode sink: deliveries are printed instead of
// sent, so the whole pipeline can run without touching real chat groups.
type Console struct{}

func (Console) Send(_ context.Context, chatID, text, _ string) error {
	fmt.Printf("--- dev delivery to %s ---\n%s\n", chatID, text)
	return nil
}
