package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	authdomain "todo/backend/internal/domain/auth"
	"todo/backend/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	authAuthenticated = "authenticated"
	authRejected      = "rejected"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// requestState collects facts decided deeper in the chain for the request log.
type requestState struct {
	auth string
}

type requestStateKey struct{}

func recordAuthOutcome(ctx context.Context, outcome string) {
	if st, ok := ctx.Value(requestStateKey{}).(*requestState); ok {
		st.auth = outcome
	}
}

// instrument traces, measures and logs every request. The route label is
// read after the handler ran, once chi has matched the pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		state := &requestState{}

		ctx := logger.ToContext(r.Context(), s.logger.With("request_id", middleware.GetReqID(r.Context())))
		ctx = context.WithValue(ctx, requestStateKey{}, state)
		ctx, span := startSpan(ctx, r)
		defer span.End()

		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		duration := time.Since(start)

		finishSpan(span, r.Method, route, status)
		s.metrics.observeRequest(r.Method, route, status, duration)

		fields := []any{
			"method", r.Method,
			"route", route,
			"status", status,
			"size", recorder.size,
			"duration", duration,
		}
		if state.auth != "" {
			fields = append(fields, "auth", state.auth)
		}
		logger.FromContext(ctx).Infow("request", fields...)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// requireAuth admits a request only with a valid bearer token. Every
// rejection looks the same to the caller.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))

		identity, err := s.authService.Authenticate(r.Context(), token)
		if err != nil {
			logger.Debugf(r.Context(), "rejected %s %s: %v", r.Method, r.URL.Path, err)
			s.metrics.observeAuth(authRejected)
			recordAuthOutcome(r.Context(), authRejected)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		s.metrics.observeAuth(authAuthenticated)
		recordAuthOutcome(r.Context(), authAuthenticated)
		ctx := authdomain.WithIdentity(r.Context(), identity)
		ctx = logger.With(ctx, "user_id", identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func withCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && isOriginAllowed(origin, allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}
