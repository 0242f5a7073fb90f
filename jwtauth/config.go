package jwtauth

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenLifetime is used when WithTokenLifetime is not given
	DefaultTokenLifetime = 60 * time.Minute

	// MinSecretLength is the minimum HS256 key size in bytes
	MinSecretLength = 32
)

// DefaultPublicPaths are the credential-exchange and registration endpoints.
// They cannot require a token because they are where tokens come from.
var DefaultPublicPaths = []string{"/genToken", "/registration"}

// Config holds immutable configuration for token issuance and verification
type Config struct {
	secret          []byte
	signingMethod   jwt.SigningMethod
	lifetime        time.Duration
	clockSkewLeeway time.Duration
	publicPaths     map[string]struct{}
	logger          *slog.Logger
	now             func() time.Time
}

// ConfigOption is a functional option for configuring the codec and gate
type ConfigOption func(*Config) error

// NewConfig creates a new immutable configuration with the given options
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		lifetime:    DefaultTokenLifetime,
		publicPaths: make(map[string]struct{}, len(DefaultPublicPaths)),
		now:         time.Now,
	}
	for _, p := range DefaultPublicPaths {
		cfg.publicPaths[p] = struct{}{}
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, NewValidationError(ErrConfigError, fmt.Sprintf("configuration error: %v", err), err)
		}
	}

	if cfg.signingMethod == nil || len(cfg.secret) == 0 {
		return nil, NewValidationError(ErrConfigError, "a signing secret must be configured (use WithHS256)", nil)
	}
	if cfg.now == nil {
		return nil, NewValidationError(ErrConfigError, "clock cannot be nil", nil)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return cfg, nil
}

// WithHS256 configures HMAC-SHA256 signing with the given shared secret
func WithHS256(secret []byte) ConfigOption {
	return func(c *Config) error {
		if len(secret) < MinSecretLength {
			return fmt.Errorf("HS256 secret must be at least %d bytes (256 bits), got %d bytes", MinSecretLength, len(secret))
		}
		c.secret = append([]byte(nil), secret...)
		c.signingMethod = jwt.SigningMethodHS256
		return nil
	}
}

// WithTokenLifetime sets how long issued tokens stay valid.
// A zero lifetime issues tokens that are already expired.
func WithTokenLifetime(lifetime time.Duration) ConfigOption {
	return func(c *Config) error {
		if lifetime < 0 {
			return fmt.Errorf("token lifetime must be non-negative, got %v", lifetime)
		}
		c.lifetime = lifetime
		return nil
	}
}

// WithClockSkew sets the tolerance applied to the exp check
func WithClockSkew(skew time.Duration) ConfigOption {
	return func(c *Config) error {
		if skew < 0 {
			return fmt.Errorf("clock skew must be non-negative, got %v", skew)
		}
		c.clockSkewLeeway = skew
		return nil
	}
}

// WithPublicPaths replaces the default set of paths that bypass verification.
// Paths are matched by exact equality against the request path.
func WithPublicPaths(paths ...string) ConfigOption {
	return func(c *Config) error {
		set := make(map[string]struct{}, len(paths))
		for _, p := range paths {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("public path %q must start with '/'", p)
			}
			set[p] = struct{}{}
		}
		c.publicPaths = set
		return nil
	}
}

// WithLogger sets a structured logger for security events. Without it, or
// with a nil logger, events go to slog.Default(). Pass a logger over
// slog.DiscardHandler to silence them.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for issuance and expiry checks
func WithClock(now func() time.Time) ConfigOption {
	return func(c *Config) error {
		c.now = now
		return nil
	}
}

// Algorithm returns the name of the signing algorithm
func (c *Config) Algorithm() string {
	return c.signingMethod.Alg()
}

func (c *Config) TokenLifetime() time.Duration {
	return c.lifetime
}

func (c *Config) ClockSkewLeeway() time.Duration {
	return c.clockSkewLeeway
}

// IsPublicPath reports whether path is exempt from token verification
func (c *Config) IsPublicPath(path string) bool {
	_, ok := c.publicPaths[path]
	return ok
}

// PublicPaths returns the exempt paths in sorted order
func (c *Config) PublicPaths() []string {
	paths := make([]string, 0, len(c.publicPaths))
	for p := range c.publicPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (c *Config) Logger() *slog.Logger {
	return c.logger
}

// Now returns the current time from the configured clock
func (c *Config) Now() time.Time {
	return c.now()
}
