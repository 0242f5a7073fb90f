package jwtauth

import (
	"context"
	"log/slog"
	"time"
)

const (
	eventSuccess = "success"
	eventFailure = "failure"
	eventBypass  = "bypass"
)

// SecurityEvent represents a structured security log entry
type SecurityEvent struct {
	EventType     string        // "success", "failure" or "bypass"
	Timestamp     time.Time     // Event timestamp
	RequestID     string        // Correlation ID
	Transport     string        // "http" or "grpc"
	Path          string        // Request path or full gRPC method
	Subject       string        // Token subject, when it could be decoded
	FailureReason string        // Error code (on failure)
	Status        int           // Status code returned to the client
	TokenPreview  string        // Redacted token preview
	Latency       time.Duration // Gate latency
}

// LogValue implements slog.LogValuer for structured logging with redaction
func (e SecurityEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("event", e.EventType),
		slog.Time("timestamp", e.Timestamp),
		slog.String("request_id", e.RequestID),
		slog.String("transport", e.Transport),
		slog.String("path", e.Path),
		slog.String("subject", e.Subject),
		slog.String("failure_reason", e.FailureReason),
		slog.Int("status", e.Status),
		slog.String("token", redactToken(e.TokenPreview)),
		slog.Duration("latency", e.Latency),
	)
}

// redactToken redacts sensitive token data
func redactToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// logSecurityEvent emits a security event via the configured logger
func logSecurityEvent(logger *slog.Logger, event SecurityEvent) {
	if logger == nil {
		return // Logging disabled
	}

	ctx := context.Background()
	switch {
	case event.EventType == eventBypass:
		logger.LogAttrs(ctx, slog.LevelDebug, "authentication skipped for public path", slog.Any("auth_event", event))
	case event.EventType == eventSuccess:
		logger.LogAttrs(ctx, slog.LevelInfo, "authentication succeeded", slog.Any("auth_event", event))
	case event.FailureReason == string(ErrTransportFailure):
		logger.LogAttrs(ctx, slog.LevelError, "authentication could not complete", slog.Any("auth_event", event))
	default:
		logger.LogAttrs(ctx, slog.LevelWarn, "authentication failed", slog.Any("auth_event", event))
	}
}

// logAttempt logs the outcome of one gate decision
func logAttempt(cfg *Config, transport, requestID, path string, a attempt, status int, latency time.Duration) {
	if cfg.Logger() == nil {
		return
	}

	event := SecurityEvent{
		EventType:    eventSuccess,
		Timestamp:    time.Now(),
		RequestID:    requestID,
		Transport:    transport,
		Path:         path,
		Subject:      a.subject,
		Status:       status,
		TokenPreview: a.token,
		Latency:      latency,
	}
	if a.err != nil {
		event.EventType = eventFailure
		event.FailureReason = string(CodeOf(a.err))
	}

	logSecurityEvent(cfg.Logger(), event)
}

// logBypass logs a request forwarded without verification
func logBypass(cfg *Config, transport, requestID, path string) {
	if cfg.Logger() == nil {
		return
	}

	logSecurityEvent(cfg.Logger(), SecurityEvent{
		EventType: eventBypass,
		Timestamp: time.Now(),
		RequestID: requestID,
		Transport: transport,
		Path:      path,
	})
}
