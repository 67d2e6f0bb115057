package server

import (
	"errors"
	"net/http"
	"strings"

	"pizza-service/internal/model"
	"pizza-service/internal/store"
)

type franchisesResponse struct {
	Franchises []model.Franchise `json:"franchises"`
	More       bool              `json:"more"`
}

type createStoreRequest struct {
	Name string `json:"name"`
}

func (s *Server) listFranchisesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 0)
		limit := queryInt(r, "limit", 10)
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "*"
		}
		franchises, more, err := s.store.GetFranchises(r.Context(), page, limit, name)
		if err != nil {
			s.logger.Error().Err(err).Msg("list franchises failed")
			s.writeError(w, http.StatusInternalServerError, "unable to list franchises")
			return
		}
		s.writeJSON(w, http.StatusOK, franchisesResponse{Franchises: franchises, More: more})
	}
}

// userFranchisesHandler lists the franchises a user administers. Callers other
// than the user or an admin get an empty list.
func (s *Server) userFranchisesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		userID, ok := idParam(r, "id")
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		if auth.user.ID != userID && !auth.user.IsRole(model.RoleAdmin) {
			s.writeJSON(w, http.StatusOK, []model.Franchise{})
			return
		}
		franchises, err := s.store.GetUserFranchises(r.Context(), userID)
		if err != nil {
			s.logger.Error().Err(err).Int64("user", userID).Msg("load user franchises failed")
			s.writeError(w, http.StatusInternalServerError, "unable to load franchises")
			return
		}
		s.writeJSON(w, http.StatusOK, franchises)
	}
}

func (s *Server) createFranchiseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		if !auth.user.IsRole(model.RoleAdmin) {
			s.writeError(w, http.StatusForbidden, "unable to create a franchise")
			return
		}
		var req model.Franchise
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			s.writeError(w, http.StatusBadRequest, "franchise name is required")
			return
		}
		franchise, err := s.store.CreateFranchise(r.Context(), req)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "unknown user for franchise admin provided")
			return
		case errors.Is(err, store.ErrConflict):
			s.writeError(w, http.StatusConflict, "franchise already exists")
			return
		case err != nil:
			s.logger.Error().Err(err).Msg("create franchise failed")
			s.writeError(w, http.StatusInternalServerError, "unable to create a franchise")
			return
		}
		s.writeJSON(w, http.StatusOK, franchise)
	}
}

func (s *Server) deleteFranchiseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		if !auth.user.IsRole(model.RoleAdmin) {
			s.writeError(w, http.StatusForbidden, "unable to delete a franchise")
			return
		}
		id, ok := idParam(r, "id")
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid franchise id")
			return
		}
		err := s.store.DeleteFranchise(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown franchise")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Int64("franchise", id).Msg("delete franchise failed")
			s.writeError(w, http.StatusInternalServerError, "unable to delete a franchise")
			return
		}
		s.writeJSON(w, http.StatusOK, messageResponse{Message: "franchise deleted"})
	}
}

func (s *Server) createStoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		franchiseID, ok := idParam(r, "id")
		if !ok || !auth.user.AdministersFranchise(franchiseID) {
			s.writeError(w, http.StatusForbidden, "unable to create a store")
			return
		}
		var req createStoreRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			s.writeError(w, http.StatusBadRequest, "store name is required")
			return
		}
		st, err := s.store.CreateStore(r.Context(), franchiseID, req.Name)
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown franchise")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Int64("franchise", franchiseID).Msg("create store failed")
			s.writeError(w, http.StatusInternalServerError, "unable to create a store")
			return
		}
		s.writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) deleteStoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		franchiseID, ok := idParam(r, "id")
		if !ok || !auth.user.AdministersFranchise(franchiseID) {
			s.writeError(w, http.StatusForbidden, "unable to delete a store")
			return
		}
		storeID, ok := idParam(r, "storeID")
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid store id")
			return
		}
		err := s.store.DeleteStore(r.Context(), franchiseID, storeID)
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown store")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Int64("store", storeID).Msg("delete store failed")
			s.writeError(w, http.StatusInternalServerError, "unable to delete a store")
			return
		}
		s.writeJSON(w, http.StatusOK, messageResponse{Message: "store deleted"})
	}
}
