package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pizza-service/internal/model"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			s.logger.Info().
				Str("route", routePattern(r)).
				Str("method", r.Method).
				Int("status", recorder.status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Str("client", clientOrigin(r)).
				Msg("request")
		})
	}
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func clientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

type ctxAuthKey struct{}

type authInfo struct {
	user  model.User
	token string
}

func newAuthContext(parent context.Context, user model.User, token string) context.Context {
	return context.WithValue(parent, ctxAuthKey{}, authInfo{user: user, token: token})
}

func authFrom(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(ctxAuthKey{}).(authInfo)
	return info, ok
}

// authenticated requires a bearer token that verifies and has not been logged out.
func (s *Server) authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := parseTokenFromHeader(r.Header.Get("Authorization"))
			claims, err := s.signer.Validate(token)
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			live, err := s.sessions.Valid(token)
			if err != nil {
				s.logger.Error().Err(err).Msg("session lookup failed")
				s.writeError(w, http.StatusInternalServerError, "session lookup failed")
				return
			}
			if !live {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := newAuthContext(r.Context(), claims.User(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseTokenFromHeader(h string) string {
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
