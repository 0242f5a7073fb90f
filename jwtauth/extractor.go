package jwtauth

import (
	"strings"

	"google.golang.org/grpc/metadata"
)

// extractBearerToken extracts the token from an Authorization header value.
// Expected format: "Bearer <token>". Anything else counts as a missing token.
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", NewValidationError(ErrMissingToken, "authorization header not found", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", NewValidationError(ErrMissingToken, "invalid authorization header format, expected 'Bearer <token>'", nil)
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", NewValidationError(ErrMissingToken, "token is empty", nil)
	}

	return token, nil
}

// authorizationFromMetadata returns the first authorization value in gRPC metadata
func authorizationFromMetadata(md metadata.MD) string {
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
