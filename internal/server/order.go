package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"pizza-service/internal/factory"
	"pizza-service/internal/model"
	"pizza-service/internal/store"
)

type ordersResponse struct {
	DinerID int64         `json:"dinerId"`
	Orders  []model.Order `json:"orders"`
	Page    int           `json:"page"`
}

type createOrderResponse struct {
	Order     model.Order `json:"order"`
	JWT       string      `json:"jwt"`
	ReportURL string      `json:"reportUrl,omitempty"`
}

type factoryFailure struct {
	Message   string `json:"message"`
	ReportURL string `json:"reportUrl,omitempty"`
}

func (s *Server) menuHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		menu, err := s.store.GetMenu(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("load menu failed")
			s.writeError(w, http.StatusInternalServerError, "unable to load menu")
			return
		}
		s.writeJSON(w, http.StatusOK, menu)
	}
}

func (s *Server) addMenuItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		if !auth.user.IsRole(model.RoleAdmin) {
			s.writeError(w, http.StatusForbidden, "unable to add menu item")
			return
		}
		var item model.MenuItem
		if err := decodeJSON(r, &item); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(item.Title) == "" || item.Price < 0 {
			s.writeError(w, http.StatusBadRequest, "title and a non-negative price are required")
			return
		}
		if _, err := s.store.AddMenuItem(r.Context(), item); err != nil {
			s.logger.Error().Err(err).Msg("add menu item failed")
			s.writeError(w, http.StatusInternalServerError, "unable to add menu item")
			return
		}
		s.menuHandler()(w, r)
	}
}

func (s *Server) ordersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		page := queryInt(r, "page", 1)
		orders, err := s.store.GetOrders(r.Context(), auth.user.ID, page)
		if err != nil {
			s.logger.Error().Err(err).Int64("diner", auth.user.ID).Msg("load orders failed")
			s.writeError(w, http.StatusInternalServerError, "unable to load orders")
			return
		}
		s.writeJSON(w, http.StatusOK, ordersResponse{DinerID: auth.user.ID, Orders: orders, Page: page})
	}
}

// createOrderHandler stores the order, then asks the factory to bake it. The
// factory outcome drives the purchase metrics.
func (s *Server) createOrderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, _ := authFrom(r.Context())
		var req model.Order
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if len(req.Items) == 0 {
			s.writeError(w, http.StatusBadRequest, "order must contain at least one item")
			return
		}
		for _, item := range req.Items {
			if item.Price < 0 {
				s.writeError(w, http.StatusBadRequest, "item prices must be non-negative")
				return
			}
		}
		order, err := s.store.AddDinerOrder(r.Context(), auth.user.ID, req)
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusBadRequest, "unknown menu item")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("store order failed")
			s.writeError(w, http.StatusInternalServerError, "unable to place order")
			return
		}

		diner := factory.Diner{ID: auth.user.ID, Name: auth.user.Name, Email: auth.user.Email}
		start := time.Now()
		result, err := s.factory.Order(r.Context(), diner, order)
		s.metrics.PizzaLatency(start, time.Now())
		if err != nil {
			s.metrics.PizzaPurchaseFailure()
			s.logger.Warn().Err(err).Int64("order", order.ID).Msg("factory rejected order")
			resp := factoryFailure{Message: "Failed to fulfill order at factory"}
			var ferr *factory.Error
			if errors.As(err, &ferr) {
				resp.ReportURL = ferr.ReportURL
			}
			s.writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		s.metrics.PizzaPurchaseSuccess()
		s.metrics.PizzaPurchaseRevenue(order.Total())
		s.writeJSON(w, http.StatusOK, createOrderResponse{Order: order, JWT: result.JWT, ReportURL: result.ReportURL})
	}
}
