package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/authgate/jwtauth"
)

// parseLifetime accepts a Go duration ("30m", "1h") or a bare number of minutes
func parseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return jwtauth.DefaultTokenLifetime, nil
	}
	if minutes, err := strconv.ParseInt(s, 10, 64); err == nil {
		if minutes < 0 {
			return 0, fmt.Errorf("lifetime must be non-negative, got %d minutes", minutes)
		}
		return time.Duration(minutes) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime %q: %w", s, err)
	}
	return d, nil
}

// parseLevel maps a level name onto slog levels
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// newLogger builds the process logger from log.level and log.format
func newLogger(v *viper.Viper, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(v.GetString(LogLevelKey))
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(v.GetString(LogFormatKey)) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "console":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (use json or text)", v.GetString(LogFormatKey))
	}
}

// stringList reads a list setting. Entries may also be comma separated, as
// they are when the list comes from a single environment variable.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, entry := range v.GetStringSlice(key) {
		for _, item := range strings.Split(entry, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// gateConfig builds the gate configuration from jwt.* keys
func gateConfig(v *viper.Viper, logger *slog.Logger) (*jwtauth.Config, error) {
	secret := v.GetString(JWTSecretKey)
	if secret == "" {
		return nil, fmt.Errorf("%s is required (flag --secret or AUTHGATE_JWT_SECRET)", JWTSecretKey)
	}

	lifetime, err := parseLifetime(v.GetString(JWTLifetimeKey))
	if err != nil {
		return nil, err
	}

	skew, err := time.ParseDuration(v.GetString(JWTClockSkewKey))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", JWTClockSkewKey, err)
	}

	opts := []jwtauth.ConfigOption{
		jwtauth.WithHS256([]byte(secret)),
		jwtauth.WithTokenLifetime(lifetime),
		jwtauth.WithClockSkew(skew),
	}
	if paths := stringList(v, JWTPublicPathsKey); len(paths) > 0 {
		opts = append(opts, jwtauth.WithPublicPaths(paths...))
	}
	if logger != nil {
		opts = append(opts, jwtauth.WithLogger(logger))
	}
	return jwtauth.NewConfig(opts...)
}
