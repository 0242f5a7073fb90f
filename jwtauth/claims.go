package jwtauth

import "time"

// Claims represents the verified payload of an access token
type Claims struct {
	Subject   string    // Username the token was issued to (sub claim)
	IssuedAt  time.Time // Issue time (iat claim)
	ExpiresAt time.Time // Expiration time (exp claim)
}

// ExpiredAt reports whether the claims are no longer valid at t.
// A token is valid only while t is strictly before ExpiresAt.
func (c *Claims) ExpiredAt(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

// Lifetime returns the validity window the token was issued with
func (c *Claims) Lifetime() time.Duration {
	return c.ExpiresAt.Sub(c.IssuedAt)
}
