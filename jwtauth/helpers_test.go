package jwtauth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	// Set Gin to test mode to suppress logs
	gin.SetMode(gin.TestMode)
}

// testSecret is a 32-byte HS256 key used across the package tests
var testSecret = []byte("0123456789abcdef0123456789abcdef")

var errTestStoreDown = errors.New("store down")

// fakeClock is a settable time source for expiry tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubStore is an in-memory CredentialStore that counts lookups
type stubStore struct {
	users map[string]*Credentials
	err   error
	calls atomic.Int32
}

func newStubStore(usernames ...string) *stubStore {
	s := &stubStore{users: make(map[string]*Credentials)}
	for _, u := range usernames {
		s.users[u] = &Credentials{Username: u, PasswordHash: "$2a$10$unused"}
	}
	return s
}

func (s *stubStore) LookupCredentials(_ context.Context, username string) (*Credentials, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	creds, ok := s.users[username]
	if !ok {
		return nil, ErrUnknownUser
	}
	return creds, nil
}

// mustCreateConfig discards security events unless opts set a logger
func mustCreateConfig(opts ...ConfigOption) *Config {
	opts = append([]ConfigOption{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	cfg, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func mustCreateGate(t testing.TB, cfg *Config, store CredentialStore) *Gate {
	t.Helper()
	g, err := NewGate(cfg, store)
	if err != nil {
		t.Fatalf("Failed to create gate: %v", err)
	}
	return g
}

func mustIssue(t testing.TB, codec *Codec, subject string) string {
	t.Helper()
	token, err := codec.Issue(subject)
	if err != nil {
		t.Fatalf("Failed to issue token for %q: %v", subject, err)
	}
	return token
}

// createTestRouter builds a router with the gate installed globally, a
// protected /protected route and the default public routes
func createTestRouter(g *Gate) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(g))
	router.GET("/protected", func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok {
			c.JSON(500, gin.H{"error": "identity not found"})
			return
		}
		c.JSON(200, gin.H{"user": identity.Subject})
	})
	router.POST("/registration", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "registered"})
	})
	router.POST("/genToken", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "issued"})
	})
	return router
}

func doRequest(router http.Handler, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", w.Body.String(), err)
	}
	return body
}

func requireCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error %s, got nil", want)
	}
	if got := CodeOf(err); got != want {
		t.Fatalf("Expected error code %s, got %s (%v)", want, got, err)
	}
}
