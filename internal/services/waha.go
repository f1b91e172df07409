package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// WahaService sends WhatsApp messages through a WAHA (WhatsApp HTTP API) instance.
type WahaService struct {
	baseURL     string
	apiKey      string
	session     string
	countryCode string
	client      *http.Client
}

func NewWahaService() *WahaService {
	url := os.Getenv("WAHA_BASE_URL")
	if url == "" {
		url = "http://waha:3000"
	}
	session := os.Getenv("WAHA_SESSION")
	if session == "" {
		session = "default"
	}
	countryCode := os.Getenv("WAHA_DEFAULT_COUNTRY_CODE")
	if countryCode == "" {
		countryCode = "91"
	}
	return &WahaService{
		baseURL:     strings.TrimRight(url, "/"),
		apiKey:      os.Getenv("WAHA_API_KEY"),
		session:     session,
		countryCode: countryCode,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WahaService) makeRequest(ctx context.Context, endpoint string, payload map[string]string) error {
	payload["session"] = s.session
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// NormalizeChatID turns a phone number or chat id into a WAHA chat id.
// Local numbers get countryCode prepended; group ids pass through.
func NormalizeChatID(chatID, countryCode string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.NewReplacer("+", "", " ", "", "-", "").Replace(chatID)

	switch {
	case strings.HasPrefix(chatID, "0"):
		chatID = countryCode + strings.TrimLeft(chatID, "0")
	case len(chatID) == 10:
		// bare national number, e.g. Indian mobile
		chatID = countryCode + chatID
	}

	return chatID + "@c.us"
}

// SendMessage sends a message the way a person would: seen, typing, then text.
func (s *WahaService) SendMessage(ctx context.Context, chatID, text string) error {
	chatID = NormalizeChatID(chatID, s.countryCode)

	steps := []struct {
		endpoint string
		pause    time.Duration
	}{
		{"/api/sendSeen", 100 * time.Millisecond},
		{"/api/startTyping", 150 * time.Millisecond},
		{"/api/stopTyping", 50 * time.Millisecond},
	}
	for _, step := range steps {
		if err := s.makeRequest(ctx, step.endpoint, map[string]string{"chatId": chatID}); err != nil {
			return fmt.Errorf("%s: %w", step.endpoint, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step.pause):
		}
	}

	if err := s.makeRequest(ctx, "/api/sendText", map[string]string{"chatId": chatID, "text": text}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}
