package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestNormalizeChatID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "national number with trunk prefix",
			input:    "09876543210",
			expected: "919876543210@c.us",
		},
		{
			name:     "bare ten digit mobile",
			input:    "9876543210",
			expected: "919876543210@c.us",
		},
		{
			name:     "international format with plus",
			input:    "+91 98765-43210",
			expected: "919876543210@c.us",
		},
		{
			name:     "already has country code",
			input:    "919876543210",
			expected: "919876543210@c.us",
		},
		{
			name:     "group id",
			input:    "120363407813232111@g.us",
			expected: "120363407813232111@g.us",
		},
		{
			name:     "national number with suffix",
			input:    "09876543210@c.us",
			expected: "919876543210@c.us",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeChatID(tt.input, "91")
			if result != tt.expected {
				t.Errorf("NormalizeChatID(%q) = %q; want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWahaSendMessage(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		text  map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header on %s", r.URL.Path)
		}
		if r.URL.Path == "/api/sendText" {
			json.NewDecoder(r.Body).Decode(&text)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	t.Setenv("WAHA_BASE_URL", srv.URL)
	t.Setenv("WAHA_API_KEY", "secret")
	t.Setenv("WAHA_SESSION", "")
	t.Setenv("WAHA_DEFAULT_COUNTRY_CODE", "")

	if err := NewWahaService().SendMessage(context.Background(), "9876543210", "Payment received"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	want := []string{"/api/sendSeen", "/api/startTyping", "/api/stopTyping", "/api/sendText"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v; want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call %d = %s; want %s", i, paths[i], want[i])
		}
	}
	if text["chatId"] != "919876543210@c.us" || text["text"] != "Payment received" || text["session"] != "default" {
		t.Errorf("sendText body = %v", text)
	}
}

func TestWahaSendMessageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not started", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()
	t.Setenv("WAHA_BASE_URL", srv.URL)

	if err := NewWahaService().SendMessage(context.Background(), "9876543210", "hi"); err == nil {
		t.Error("expected an error from a failing WAHA server")
	}
}
