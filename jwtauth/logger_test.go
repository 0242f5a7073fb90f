package jwtauth

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"
)

// captureLogs returns a JSON slog logger writing to buf at debug level
func captureLogs(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// logEntries decodes one JSON object per line
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func authEvent(t *testing.T, entry map[string]interface{}) map[string]interface{} {
	t.Helper()
	event, ok := entry["auth_event"].(map[string]interface{})
	if !ok {
		t.Fatalf("Log entry has no auth_event group: %v", entry)
	}
	return event
}

// TestSecurityEvent_Levels tests the level and fields logged for each outcome
func TestSecurityEvent_Levels(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		subject        string
		storeErr       error
		header         bool
		expectedLevel  string
		expectedEvent  string
		expectedReason string
		expectedStatus float64
	}{
		{
			name:           "Success logs INFO",
			path:           "/protected",
			subject:        "alice",
			header:         true,
			expectedLevel:  "INFO",
			expectedEvent:  "success",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing token logs WARN",
			path:           "/protected",
			expectedLevel:  "WARN",
			expectedEvent:  "failure",
			expectedReason: "MISSING_TOKEN",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Unknown user logs WARN",
			path:           "/protected",
			subject:        "ghost",
			header:         true,
			expectedLevel:  "WARN",
			expectedEvent:  "failure",
			expectedReason: "UNKNOWN_SUBJECT",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Store failure logs ERROR",
			path:           "/protected",
			subject:        "alice",
			storeErr:       errTestStoreDown,
			header:         true,
			expectedLevel:  "ERROR",
			expectedEvent:  "failure",
			expectedReason: "TRANSPORT_FAILURE",
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:          "Public path logs DEBUG",
			path:          "/genToken",
			expectedLevel: "DEBUG",
			expectedEvent: "bypass",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := mustCreateConfig(WithHS256(testSecret), WithLogger(captureLogs(&buf)))
			store := newStubStore("alice")
			store.err = tt.storeErr
			g := mustCreateGate(t, cfg, store)
			router := createTestRouter(g)

			header := ""
			if tt.header {
				header = "Bearer " + mustIssue(t, g.Codec(), tt.subject)
			}
			method := http.MethodGet
			if tt.path == "/genToken" {
				method = http.MethodPost
			}
			doRequest(router, method, tt.path, header)

			entries := logEntries(t, &buf)
			if len(entries) != 1 {
				t.Fatalf("Expected exactly one log entry, got %d: %s", len(entries), buf.String())
			}
			entry := entries[0]
			if entry["level"] != tt.expectedLevel {
				t.Errorf("Expected level %s, got %v", tt.expectedLevel, entry["level"])
			}

			event := authEvent(t, entry)
			if event["event"] != tt.expectedEvent {
				t.Errorf("Expected event %s, got %v", tt.expectedEvent, event["event"])
			}
			if event["path"] != tt.path {
				t.Errorf("Expected path %s, got %v", tt.path, event["path"])
			}
			if event["transport"] != "http" {
				t.Errorf("Expected transport http, got %v", event["transport"])
			}
			if event["request_id"] == "" {
				t.Error("Expected a request ID in the log entry")
			}
			if tt.expectedEvent == "bypass" {
				return
			}
			if event["failure_reason"] != tt.expectedReason {
				t.Errorf("Expected failure_reason %q, got %v", tt.expectedReason, event["failure_reason"])
			}
			if event["status"] != tt.expectedStatus {
				t.Errorf("Expected status %v, got %v", tt.expectedStatus, event["status"])
			}
			if event["subject"] != tt.subject {
				t.Errorf("Expected subject %q, got %v", tt.subject, event["subject"])
			}
		})
	}
}

// TestSecurityEvent_TokenRedaction tests that full tokens never reach the log
func TestSecurityEvent_TokenRedaction(t *testing.T) {
	var buf bytes.Buffer
	cfg := mustCreateConfig(WithHS256(testSecret), WithLogger(captureLogs(&buf)))
	g := mustCreateGate(t, cfg, newStubStore("alice"))
	router := createTestRouter(g)

	token := mustIssue(t, g.Codec(), "alice")
	doRequest(router, http.MethodGet, "/protected", "Bearer "+token)
	doRequest(router, http.MethodGet, "/protected", "Bearer "+flipChar(token, len(token)-3))

	if strings.Contains(buf.String(), token[9:]) {
		t.Fatalf("Log output contains the token body: %s", buf.String())
	}

	for _, entry := range logEntries(t, &buf) {
		if got := authEvent(t, entry)["token"]; got != token[:8]+"..." {
			t.Errorf("Expected redacted token %q, got %v", token[:8]+"...", got)
		}
	}
}

// TestRedactToken tests the redaction rules
func TestRedactToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"12345678", "***"},
		{"123456789", "12345678..."},
		{"eyJhbGciOiJIUzI1NiJ9.payload.sig", "eyJhbGci..."},
	}

	for _, tt := range tests {
		if got := redactToken(tt.in); got != tt.want {
			t.Errorf("redactToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSecurityEvent_LogValue tests the group layout of a single event
func TestSecurityEvent_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogs(&buf)

	logSecurityEvent(logger, SecurityEvent{
		EventType:     eventFailure,
		Timestamp:     time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		RequestID:     "req-1",
		Transport:     "grpc",
		Path:          "/greeter.v1.Greeter/SayHello",
		Subject:       "alice",
		FailureReason: string(ErrExpired),
		Status:        16,
		TokenPreview:  "eyJhbGciOiJIUzI1NiJ9",
		Latency:       time.Millisecond,
	})

	entries := logEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected one entry, got %d", len(entries))
	}
	if entries[0]["msg"] != "authentication failed" {
		t.Errorf("Unexpected message %v", entries[0]["msg"])
	}

	event := authEvent(t, entries[0])
	want := map[string]interface{}{
		"event":          "failure",
		"request_id":     "req-1",
		"transport":      "grpc",
		"subject":        "alice",
		"failure_reason": "EXPIRED",
		"status":         float64(16),
		"token":          "eyJhbGci...",
		"latency":        float64(time.Millisecond),
	}
	for k, v := range want {
		if event[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, event[k])
		}
	}
}

// TestDefaultLogger tests that rejections are logged through slog.Default()
// when no logger is configured
func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(captureLogs(&buf))
	t.Cleanup(func() { slog.SetDefault(previous) })

	cfg, err := NewConfig(WithHS256(testSecret))
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	router := createTestRouter(mustCreateGate(t, cfg, newStubStore()))

	w := doRequest(router, http.MethodGet, "/protected", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	entries := logEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected one log entry, got %d: %s", len(entries), buf.String())
	}
	if entries[0]["level"] != "WARN" {
		t.Errorf("Expected WARN, got %v", entries[0]["level"])
	}
	if got := authEvent(t, entries[0])["failure_reason"]; got != string(ErrMissingToken) {
		t.Errorf("Expected reason %s, got %v", ErrMissingToken, got)
	}

	logSecurityEvent(nil, SecurityEvent{EventType: eventSuccess})
}
