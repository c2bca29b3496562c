package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/registry/pkg/rbac"
	"github.com/clinicdesk/registry/pkg/types"
)

// requestIDMiddleware assigns every request an ID and echoes it back
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware records one structured log line per request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.HTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, wrapper.status, time.Since(start).Milliseconds())
	})
}

// rateLimitMiddleware rejects callers that exhausted their request budget
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		callerID := r.RemoteAddr
		if claims, ok := types.ClaimsFromContext(r.Context()); ok {
			callerID = claims.UserID
		}

		if !s.rateLimiter.Allow(callerID) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware verifies the bearer token and stores the claims in the
// request context
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.metrics.RecordAuthAttempt("bearer", "missing")
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			s.metrics.RecordAuthAttempt("bearer", "malformed")
			http.Error(w, "malformed authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := s.tokenValidator.ValidateJWT(tokenString)
		if err != nil {
			s.metrics.RecordAuthAttempt("bearer", "invalid")
			s.logger.WithError(err).Warn("Token validation failed")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		s.metrics.RecordAuthAttempt("bearer", "success")
		next.ServeHTTP(w, r.WithContext(types.ContextWithClaims(r.Context(), claims)))
	})
}

// RequireCapability gates a handler on the caller's role holding the given
// capability
func (s *Server) RequireCapability(cap rbac.Capability, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := types.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		role, err := rbac.ParseRole(claims.Role)
		if err != nil || !rbac.Allowed(role, cap) {
			s.logger.Audit(claims.UserID, "access_denied", string(cap), false, map[string]interface{}{
				"role": claims.Role,
				"path": r.URL.Path,
			})
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		handler(w, r)
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
