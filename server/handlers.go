package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/authgate/jwtauth"
	"github.com/user/authgate/userstore"
)

const (
	msgUserSaved       = "User saved successfully"
	msgUsernameExists  = "Username already exists"
	msgUnableToSave    = "Unable to save User"
	msgCredentials     = "userName and password are required"
	msgFailedAuth      = "Failed authentication : Username/password Incorrect"
	msgTooManyRequests = "too many requests"
	msgIssueFailed     = "unable to issue token"
)

// UserRequest is the body of /registration and /genToken
type UserRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// TokenResponse is returned by /genToken
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	Subject     string    `json:"subject"`
	Authorities []string  `json:"authorities"`
	ExpiresAt   time.Time `json:"expiresAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

func respond(c *gin.Context, status int, success bool, message string) {
	c.JSON(status, jwtauth.ErrorResponse{Success: success, Message: message})
}

// bindUser decodes a UserRequest and trims the username
func bindUser(c *gin.Context) (UserRequest, bool) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, false
	}
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" || req.Password == "" {
		return req, false
	}
	return req, true
}

func (s *Server) handleRegister(c *gin.Context) {
	req, ok := bindUser(c)
	if !ok {
		respond(c, http.StatusBadRequest, false, msgCredentials)
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("hashing password failed", slog.String("username", req.UserName), slog.Any("error", err))
		respond(c, http.StatusBadRequest, false, msgUnableToSave)
		return
	}

	err = s.store.Create(c.Request.Context(), &userstore.User{
		Username:     req.UserName,
		Email:        req.Email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicate):
		s.logger.Warn("username already exists", slog.String("username", req.UserName))
		respond(c, http.StatusBadRequest, false, msgUsernameExists)
		return
	case err != nil:
		s.logger.Error("unable to save user", slog.String("username", req.UserName), slog.Any("error", err))
		respond(c, http.StatusBadRequest, false, msgUnableToSave)
		return
	}

	s.logger.Info("user registered", slog.String("username", req.UserName))
	respond(c, http.StatusOK, true, msgUserSaved)
}

func (s *Server) handleGenToken(c *gin.Context) {
	if ok, wait := s.limiter.allow(c.ClientIP()); !ok {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		respond(c, http.StatusTooManyRequests, false, msgTooManyRequests)
		return
	}

	req, ok := bindUser(c)
	if !ok {
		respond(c, http.StatusUnauthorized, false, msgFailedAuth)
		return
	}

	u, err := userstore.Authenticate(c.Request.Context(), s.store, s.hasher, req.UserName, req.Password)
	switch {
	case errors.Is(err, userstore.ErrBadPassword):
		s.logger.Warn("failed authentication", slog.String("username", req.UserName))
		respond(c, http.StatusUnauthorized, false, msgFailedAuth)
		return
	case err != nil:
		s.logger.Error("credential check failed", slog.String("username", req.UserName), slog.Any("error", err))
		respond(c, http.StatusInternalServerError, false, jwtauth.MsgUnavailable)
		return
	}

	token, claims, err := s.gate.Codec().IssueClaims(u.Username)
	if err != nil {
		s.logger.Error("issuing token failed", slog.String("username", u.Username), slog.Any("error", err))
		respond(c, http.StatusInternalServerError, false, msgIssueFailed)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.UTC(),
	})
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.String(http.StatusOK, "Welcome")
}

func (s *Server) handleMe(c *gin.Context) {
	identity, ok := jwtauth.GetIdentity(c.Request.Context())
	if !ok {
		respond(c, http.StatusInternalServerError, false, jwtauth.MsgUnavailable)
		return
	}
	requestID, _ := jwtauth.GetRequestID(c.Request.Context())

	authorities := identity.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	c.JSON(http.StatusOK, MeResponse{
		Subject:     identity.Subject,
		Authorities: authorities,
		ExpiresAt:   identity.ExpiresAt.UTC(),
		RequestID:   requestID,
	})
}
