// Package userstore persists registered users and exposes them to the
// authentication gate as a jwtauth.CredentialStore.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/authgate/jwtauth"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrDuplicate   = errors.New("username already exists")
	ErrBadPassword = errors.New("username/password incorrect")
)

// DefaultRole is granted to every registered user
const DefaultRole = "user"

// User is a registered principal
type User struct {
	Username     string
	Email        string
	PasswordHash string // bcrypt encoded
	Roles        []string
	CreatedAt    time.Time
}

// Store persists users keyed by username
type Store interface {
	// Create inserts u. It returns ErrDuplicate if the username is taken.
	Create(ctx context.Context, u *User) error
	// FindByUsername returns ErrNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*User, error)
	Close() error
}

// Config selects and configures a Store driver
type Config struct {
	Driver          string // "memory", "sqlite" or "mongo"
	SQLitePath      string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the store named by cfg.Driver
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "mongo", "mongodb":
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// normalize trims and defaults a user before insertion and returns a copy
func normalize(u *User, now time.Time) (*User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	clone := *u
	clone.Username = strings.TrimSpace(clone.Username)
	clone.Email = strings.ToLower(strings.TrimSpace(clone.Email))
	if clone.Username == "" {
		return nil, errors.New("username is required")
	}
	if clone.PasswordHash == "" {
		return nil, errors.New("password hash is required")
	}
	if len(clone.Roles) == 0 {
		clone.Roles = []string{DefaultRole}
	} else {
		clone.Roles = append([]string(nil), clone.Roles...)
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	}
	return &clone, nil
}

// Credentials adapts s to the gate's CredentialStore. ErrNotFound is reported
// as jwtauth.ErrUnknownUser; any other error is passed through.
func Credentials(s Store) jwtauth.CredentialStore {
	return jwtauth.CredentialStoreFunc(func(ctx context.Context, username string) (*jwtauth.Credentials, error) {
		u, err := s.FindByUsername(ctx, username)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", jwtauth.ErrUnknownUser, username)
		}
		if err != nil {
			return nil, err
		}
		return &jwtauth.Credentials{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Authorities:  u.Roles,
		}, nil
	})
}

// Authenticate checks a username/password pair against s
func Authenticate(ctx context.Context, s Store, h Hasher, username, password string) (*User, error) {
	u, err := s.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		// Burn the same time as a real comparison
		_ = h.Compare(h.DummyHash(), password)
		return nil, ErrBadPassword
	}
	if err != nil {
		return nil, err
	}
	if err := h.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrBadPassword
	}
	return u, nil
}
