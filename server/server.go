// Package server is the HTTP application behind the authentication gate:
// user registration, token issuance and the protected routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/user/authgate/jwtauth"
	"github.com/user/authgate/userstore"
)

// Defaults for the /genToken limiter: one attempt per second per client with
// a burst of five.
const (
	DefaultLoginRate  = rate.Limit(1)
	DefaultLoginBurst = 5
	limiterTTL        = 10 * time.Minute
)

// Options configures a Server
type Options struct {
	Store  userstore.Store
	Hasher userstore.Hasher
	Gate   *jwtauth.Gate
	Logger *slog.Logger

	// LoginRate and LoginBurst bound /genToken attempts per client IP.
	// A zero LoginRate uses the defaults; rate.Inf disables limiting.
	LoginRate  rate.Limit
	LoginBurst int

	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers decide the client IP. When empty the socket address is used.
	TrustedProxies []string
}

// Server wires the gate, the user store and the handlers together
type Server struct {
	store   userstore.Store
	hasher  userstore.Hasher
	gate    *jwtauth.Gate
	logger  *slog.Logger
	limiter *multiLimiter
	router  *gin.Engine
}

// New builds the router. The gate runs in front of every route, so only the
// gate's public paths are reachable without a token.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("server: gate is required")
	}
	if opts.Hasher == nil {
		opts.Hasher = userstore.BcryptHasher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.LoginRate == 0 {
		opts.LoginRate = DefaultLoginRate
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = DefaultLoginBurst
	}

	s := &Server{
		store:   opts.Store,
		hasher:  opts.Hasher,
		gate:    opts.Gate,
		logger:  opts.Logger,
		limiter: newMultiLimiter(opts.LoginRate, opts.LoginBurst, limiterTTL),
	}
	router, err := s.routes(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s.router = router
	return s, nil
}

func (s *Server) routes(trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if len(trustedProxies) == 0 {
		trustedProxies = nil
	}
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("server: trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(jwtauth.JWTAuth(s.gate))

	r.POST("/registration", s.handleRegister)
	r.POST("/genToken", s.handleGenToken)
	r.GET("/welcome", s.handleWelcome)
	r.GET("/me", s.handleMe)
	return r, nil
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server exited")
	return nil
}
