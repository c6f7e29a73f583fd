package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Notifier forwards digest text to a Telegram chat. Sends are fire-and-forget:
// failures are logged locally, never surfaced or retried.
type Notifier struct {
	endpoint string
	chatID   int64
	client   *http.Client
}

// NewNotifier creates a Telegram notifier. An empty bot token disables it.
func NewNotifier(botToken string, chatID int64) *Notifier {
	endpoint := ""
	if botToken != "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken)
	}
	return &Notifier{
		endpoint: endpoint,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send posts the text to the chat, logging any failure.
func (n *Notifier) Send(text string) {
	if n.endpoint == "" {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		log.Printf("telegram send error: %v", err)
		return
	}
	resp, err := n.client.Post(n.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("telegram send error: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("telegram send error: HTTP %d: %s", resp.StatusCode, body)
	}
}
