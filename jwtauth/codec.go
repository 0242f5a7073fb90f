package jwtauth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Codec issues and verifies HS256 access tokens.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	cfg    *Config
	parser *jwt.Parser
}

// NewCodec creates a codec bound to the given configuration
func NewCodec(cfg *Config) *Codec {
	return &Codec{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithStrictDecoding(),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.ClockSkewLeeway()),
			jwt.WithTimeFunc(cfg.Now),
		),
	}
}

// Issue signs a new token for subject, valid for the configured lifetime
func (c *Codec) Issue(subject string) (string, error) {
	signed, _, err := c.IssueClaims(subject)
	return signed, err
}

// IssueClaims is Issue, also returning the claims that were signed
func (c *Codec) IssueClaims(subject string) (string, *Claims, error) {
	if subject == "" {
		return "", nil, NewValidationError(ErrMalformed, "subject is required", nil)
	}

	now := c.cfg.Now()
	registered := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenLifetime())),
	}

	token := jwt.NewWithClaims(c.cfg.signingMethod, registered)
	signed, err := token.SignedString(c.cfg.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token for %q: %w", subject, err)
	}
	return signed, &Claims{
		Subject:   subject,
		IssuedAt:  registered.IssuedAt.Time,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}

// Decode verifies the token signature and expiry and returns its claims.
// The signature is checked before any claim is trusted.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	registered := &jwt.RegisteredClaims{}
	_, err := c.parser.ParseWithClaims(tokenString, registered, c.keyFunc)
	if err != nil {
		return nil, c.classify(tokenString, err)
	}

	if registered.Subject == "" {
		return nil, NewValidationError(ErrMalformed, "token has no subject", nil)
	}

	claims := &Claims{Subject: registered.Subject}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

// ExtractSubject decodes the token and returns only its subject
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Validate reports whether the token is authentic, unexpired and issued to
// expectedSubject. A subject mismatch fails with ErrSubjectMismatch.
func (c *Codec) Validate(tokenString, expectedSubject string) (bool, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return false, err
	}
	if claims.Subject != expectedSubject {
		return false, NewValidationError(
			ErrSubjectMismatch,
			fmt.Sprintf("token subject %q does not match %q", claims.Subject, expectedSubject),
			nil,
		)
	}
	return true, nil
}

// keyFunc ensures the token was signed with the configured algorithm and
// returns the shared secret
func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	alg, ok := token.Header["alg"].(string)
	if !ok {
		if _, exists := token.Header["alg"]; exists {
			return nil, NewValidationError(ErrMalformedAlgorithmHeader, "algorithm header must be a string", nil)
		}
		return nil, NewValidationError(ErrMalformed, "missing algorithm in token header", nil)
	}

	if alg == "none" || alg == "None" || alg == "NONE" {
		return nil, NewValidationError(ErrNoneAlgorithm, "none algorithm not allowed", nil)
	}

	if alg != c.cfg.Algorithm() || token.Method.Alg() != c.cfg.Algorithm() {
		return nil, NewValidationError(
			ErrUnsupportedAlgorithm,
			fmt.Sprintf("algorithm %s not supported (expected %s)", alg, c.cfg.Algorithm()),
			nil,
		)
	}

	return c.cfg.secret, nil
}

// classify maps a parser error onto the codec's error codes
func (c *Codec) classify(tokenString string, err error) error {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return NewValidationError(ErrInvalidSignature, "invalid signature", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return NewValidationError(ErrExpired, "token has expired", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		// Header and claims decode but the whole token does not: the
		// signature segment itself is not valid base64url.
		if _, _, uerr := c.parser.ParseUnverified(tokenString, &jwt.RegisteredClaims{}); uerr == nil {
			return NewValidationError(ErrInvalidSignature, "signature is not valid base64url", err)
		}
		return NewValidationError(ErrMalformed, "malformed token", err)
	}

	return NewValidationError(ErrMalformed, "malformed token", err)
}
