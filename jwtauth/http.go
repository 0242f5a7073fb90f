package jwtauth

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler returns net/http middleware that runs the gate in front of next.
// It behaves exactly like JWTAuth for servers that do not use Gin.
func Handler(g *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			requestID := requestIDFrom(r)
			w.Header().Set(RequestIDHeader, requestID)
			path := r.URL.Path

			if g.cfg.IsPublicPath(path) {
				logBypass(g.cfg, "http", requestID, path)
				next.ServeHTTP(w, r)
				return
			}

			a := g.authenticate(r.Context(), r.Header.Get("Authorization"))
			if a.err != nil {
				status, body := rejectionFor(a.err)
				logAttempt(g.cfg, "http", requestID, path, a, status, time.Since(startTime))
				writeJSON(w, status, body)
				return
			}

			ctx := WithIdentity(r.Context(), a.identity)
			ctx = WithRequestID(ctx, requestID)

			logAttempt(g.cfg, "http", requestID, path, a, http.StatusOK, time.Since(startTime))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
