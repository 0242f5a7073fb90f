package jwtauth

import "net/http"

// ErrorResponse is the JSON body written on every rejection
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Rejection messages written by the gate
const (
	MsgTokenMandatory      = "Token is mandatory"
	MsgAuthenticationErr   = "authentication error"
	MsgTokenExpired        = "token expired"
	MsgInvalidUser         = "invalid user"
	MsgInvalidTokenForUser = "invalid token for user"
	MsgUnavailable         = "authentication unavailable"
)

// rejectionFor maps an authentication error onto the status code and body
// returned to the client
func rejectionFor(err error) (int, ErrorResponse) {
	switch CodeOf(err) {
	case ErrMissingToken:
		return http.StatusNotFound, ErrorResponse{Message: MsgTokenMandatory}
	case ErrMalformed, ErrInvalidSignature, ErrNoneAlgorithm,
		ErrUnsupportedAlgorithm, ErrMalformedAlgorithmHeader:
		return http.StatusBadRequest, ErrorResponse{Message: MsgAuthenticationErr}
	case ErrExpired:
		return http.StatusServiceUnavailable, ErrorResponse{Message: MsgTokenExpired}
	case ErrUnknownSubject:
		return http.StatusBadRequest, ErrorResponse{Message: MsgInvalidUser}
	case ErrSubjectMismatch:
		return http.StatusBadRequest, ErrorResponse{Message: MsgInvalidTokenForUser}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: MsgUnavailable}
	}
}
