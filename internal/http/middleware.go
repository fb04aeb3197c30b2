package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"expenses/internal/core"
	"expenses/internal/identity"
	applog "expenses/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Gateway headers carrying the already-verified claim pair. Token
// verification happens upstream; these are trusted as-is.
const (
	headerAuthRole    = "X-Auth-Role"
	headerAuthSubject = "X-Auth-Subject"
)

// ownerHandler is a handler that runs with a resolved owner.
type ownerHandler func(w http.ResponseWriter, r *http.Request, owner core.Owner)

// requireOwner resolves the caller's owner from the gateway claim headers and
// rejects the request with 401 when no valid identity is present.
func (s *Server) requireOwner(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := identity.Claims{
			Role:    r.Header.Get(headerAuthRole),
			Subject: r.Header.Get(headerAuthSubject),
		}
		owner, err := identity.Resolve(claims)
		if err != nil {
			slog.WarnContext(r.Context(), "Identity resolution failed",
				"role", claims.Role, applog.FieldError, err)
			writeError(r.Context(), w, err)
			return
		}
		next(w, r, owner)
	}
}

// withTrace adds a request ID, security headers and request logging.
func (s *Server) withTrace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldQuery, r.URL.RawQuery,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logLevel := slog.LevelInfo
		if rw.statusCode >= 400 && rw.statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if rw.statusCode >= 500 {
			logLevel = slog.LevelError
		}

		slog.Log(ctx, logLevel, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldSuccess, rw.statusCode < 400)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
