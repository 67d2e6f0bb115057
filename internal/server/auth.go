package server

import (
	"errors"
	"net/http"
	"strings"

	"pizza-service/internal/model"
	"pizza-service/internal/store"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// issueSession signs a token for user and records it as a live session.
func (s *Server) issueSession(user model.User) (string, error) {
	token, err := s.signer.Issue(user)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Put(token, user.ID); err != nil {
		return "", err
	}
	s.metrics.SetActiveUser(token)
	return token, nil
}

func (s *Server) registerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			s.writeError(w, http.StatusBadRequest, "name, email, and password are required")
			return
		}
		user, err := s.store.AddUser(r.Context(), req.Name, req.Email, req.Password, []model.Role{{Role: model.RoleDiner}})
		if errors.Is(err, store.ErrConflict) {
			s.writeError(w, http.StatusConflict, "email already registered")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("register failed")
			s.writeError(w, http.StatusInternalServerError, "unable to register")
			return
		}
		token, err := s.issueSession(user)
		if err != nil {
			s.logger.Error().Err(err).Msg("issue session failed")
			s.writeError(w, http.StatusInternalServerError, "token error")
			return
		}
		s.metrics.AuthSuccess()
		s.writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
	}
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			s.metrics.AuthFailure()
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		user, err := s.store.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidCredentials) {
			s.metrics.AuthFailure()
			s.writeError(w, http.StatusNotFound, "unknown user")
			return
		}
		if err != nil {
			s.metrics.AuthFailure()
			s.logger.Error().Err(err).Msg("login failed")
			s.writeError(w, http.StatusInternalServerError, "unable to login")
			return
		}
		token, err := s.issueSession(user)
		if err != nil {
			s.metrics.AuthFailure()
			s.logger.Error().Err(err).Msg("issue session failed")
			s.writeError(w, http.StatusInternalServerError, "token error")
			return
		}
		s.metrics.AuthSuccess()
		s.writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		if err := s.sessions.Delete(auth.token); err != nil {
			s.logger.Error().Err(err).Msg("revoke session failed")
			s.writeError(w, http.StatusInternalServerError, "unable to logout")
			return
		}
		s.metrics.UserLoggedOut(auth.token)
		s.writeJSON(w, http.StatusOK, messageResponse{Message: "logout successful"})
	}
}

func (s *Server) updateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		id, ok := idParam(r, "id")
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		if auth.user.ID != id && !auth.user.IsRole(model.RoleAdmin) {
			s.writeError(w, http.StatusForbidden, "unauthorized")
			return
		}
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		user, err := s.store.UpdateUser(r.Context(), id, req.Email, req.Password)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "unknown user")
			return
		case errors.Is(err, store.ErrConflict):
			s.writeError(w, http.StatusConflict, "email already registered")
			return
		case err != nil:
			s.logger.Error().Err(err).Int64("user", id).Msg("update user failed")
			s.writeError(w, http.StatusInternalServerError, "unable to update user")
			return
		}
		s.writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		s.writeJSON(w, http.StatusOK, auth.user)
	}
}
