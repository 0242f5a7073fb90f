package jwtauth

import (
	"context"
	"errors"
	"fmt"
)

// Credentials is the stored identity of a principal as returned by a
// CredentialStore. The gate only compares usernames; it never checks passwords.
type Credentials struct {
	Username     string
	PasswordHash string
	Authorities  []string
}

// CredentialStore looks up stored credentials by username.
// Implementations return ErrUnknownUser (possibly wrapped) when the user does not exist.
type CredentialStore interface {
	LookupCredentials(ctx context.Context, username string) (*Credentials, error)
}

// CredentialStoreFunc adapts a function to the CredentialStore interface
type CredentialStoreFunc func(ctx context.Context, username string) (*Credentials, error)

// LookupCredentials calls f(ctx, username)
func (f CredentialStoreFunc) LookupCredentials(ctx context.Context, username string) (*Credentials, error) {
	return f(ctx, username)
}

// Gate decides, per request, whether a bearer token establishes an identity.
// Transport adapters (JWTAuth, Handler, UnaryServerInterceptor) share it.
type Gate struct {
	cfg   *Config
	codec *Codec
	store CredentialStore
}

// NewGate creates a gate verifying tokens with cfg and resolving subjects in store
func NewGate(cfg *Config, store CredentialStore) (*Gate, error) {
	if cfg == nil {
		return nil, NewValidationError(ErrConfigError, "config cannot be nil", nil)
	}
	if store == nil {
		return nil, NewValidationError(ErrConfigError, "credential store cannot be nil", nil)
	}
	return &Gate{cfg: cfg, codec: NewCodec(cfg), store: store}, nil
}

// Config returns the gate configuration
func (g *Gate) Config() *Config {
	return g.cfg
}

// Codec returns the codec the gate verifies tokens with
func (g *Gate) Codec() *Codec {
	return g.codec
}

// attempt records what one authentication pass learned, for logging
type attempt struct {
	token    string
	subject  string
	identity *Identity
	err      error
}

// Authenticate runs the verification chain for a non-public request and
// returns the identity to attach. Public-path handling belongs to the caller.
func (g *Gate) Authenticate(ctx context.Context, authHeader string) (*Identity, error) {
	a := g.authenticate(ctx, authHeader)
	return a.identity, a.err
}

func (g *Gate) authenticate(ctx context.Context, authHeader string) attempt {
	var a attempt

	token, err := extractBearerToken(authHeader)
	if err != nil {
		a.err = err
		return a
	}
	a.token = token

	claims, err := g.codec.Decode(token)
	if err != nil {
		a.err = err
		return a
	}
	subject := claims.Subject
	a.subject = subject

	if existing, ok := GetIdentity(ctx); ok {
		a.identity = existing
		return a
	}

	creds, err := g.store.LookupCredentials(ctx, subject)
	switch {
	case errors.Is(err, ErrUnknownUser) || (err == nil && creds == nil):
		a.err = NewValidationError(ErrUnknownSubject, fmt.Sprintf("no user %q", subject), err)
		return a
	case err != nil:
		a.err = NewValidationError(ErrTransportFailure, "credential lookup failed", err)
		return a
	}

	if ok, err := g.codec.Validate(token, creds.Username); err != nil || !ok {
		a.err = NewValidationError(
			ErrSubjectMismatch,
			fmt.Sprintf("token is not valid for user %q", creds.Username),
			err,
		)
		return a
	}

	a.identity = &Identity{
		Subject:     creds.Username,
		Authorities: append([]string{}, creds.Authorities...),
		ExpiresAt:   claims.ExpiresAt,
	}
	return a
}
