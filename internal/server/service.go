package server

import (
	"net/http"
	"strings"

	"pizza-service/internal/model"
)

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type healthPayload struct {
	Status    string `json:"status"`
	DBEnabled bool   `json:"dbEnabled"`
	Message   string `json:"message"`
}

func (s *Server) Greeting() string {
	s.greetingMu.RLock()
	defer s.greetingMu.RUnlock()
	return s.greeting
}

func (s *Server) rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, rootResponse{Message: s.Greeting(), Version: s.version})
	}
}

func (s *Server) greetingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		if !auth.user.IsRole(model.RoleAdmin) {
			s.writeError(w, http.StatusForbidden, "unable to change greeting")
			return
		}
		var req struct {
			Greeting string `json:"greeting"`
		}
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Greeting) == "" {
			s.writeError(w, http.StatusBadRequest, "greeting is required")
			return
		}
		s.greetingMu.Lock()
		s.greeting = req.Greeting
		s.greetingMu.Unlock()
		s.metrics.GreetingChanged()
		s.writeJSON(w, http.StatusOK, rootResponse{Message: req.Greeting, Version: s.version})
	}
}

// healthHandler reports JSON status along with 200/503 so operators can
// detect a lost database connection.
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.store.DB == nil {
			s.writeJSON(w, http.StatusServiceUnavailable, healthPayload{Status: "error", Message: "database unavailable"})
			return
		}
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health ping failed")
			s.writeJSON(w, http.StatusServiceUnavailable, healthPayload{Status: "error", DBEnabled: true, Message: err.Error()})
			return
		}
		s.writeJSON(w, http.StatusOK, healthPayload{Status: "ok", DBEnabled: true, Message: "ok"})
	}
}
