package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/security"
	"learnstack/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey   ContextKey = "user"
	LoggerContextKey ContextKey = "logger"
)

// RequestIDHeader carries the request id back to the client
const RequestIDHeader = "X-Request-ID"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance. limiter may be nil.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
	}
}

// RequireAuth requires a valid bearer token and stores the user in the context
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := security.BearerToken(r)
		if token == "" {
			respondWithError(w, r, apperr.New(apperr.Unauthorized, "authentication required"))
			return
		}
		user, err := m.authService.Authenticate(r.Context(), token)
		if err != nil {
			respondWithError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, LoggerContextKey, requestLogger(r).With("user_id", user.ID))
		next(w, r.WithContext(ctx))
	}
}

// RequireMentor requires a mentor or admin account
func (m *Middleware) RequireMentor(next http.HandlerFunc) http.HandlerFunc {
	return m.requireRole(func(u *models.User) bool { return u.CanMentor() }, next)
}

// RequireAdmin requires an admin account
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.requireRole(func(u *models.User) bool { return u.IsAdmin() }, next)
}

func (m *Middleware) requireRole(allowed func(*models.User) bool, next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(GetUserFromContext(r.Context())) {
			respondWithError(w, r, apperr.New(apperr.AccessDenied, "insufficient role"))
			return
		}
		next(w, r)
	})
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	if m.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := m.limiter.Allow(security.GetClientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			respondJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: errorBody{
				Message:   "Too many requests. Please try again later.",
				Code:      "rate_limited",
				Retryable: true,
			}})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging assigns a request id and logs every request
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = security.NewID()
			}
			w.Header().Set(RequestIDHeader, id)

			reqLog := log.With("request_id", id)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), LoggerContextKey, reqLog)))

			reqLog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func requestLogger(r *http.Request) *logger.Logger {
	if log, ok := r.Context().Value(LoggerContextKey).(*logger.Logger); ok {
		return log
	}
	return logger.Nop()
}
