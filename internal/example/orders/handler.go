package orders

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fernandezvara/svckit"
)

// Routes returns the orders API router
func Routes(svc *Service) chi.Router {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/healthz", svckit.Handle(h.health))
	r.Method(http.MethodPost, "/stock", svckit.Handle(h.restock))
	r.Route("/orders", func(r chi.Router) {
		r.Method(http.MethodPost, "/", svckit.Handle(h.create))
		r.Method(http.MethodGet, "/", svckit.Handle(h.list))
		r.Method(http.MethodGet, "/{id}", svckit.Handle(h.get))
		r.Method(http.MethodDelete, "/{id}", svckit.Handle(h.cancel))
	})
	return r
}

type handler struct {
	svc *Service
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) error {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	order, err := h.svc.Create(r.Context(), req)
	if err != nil {
		return err
	}
	svckit.WriteJSON(w, http.StatusCreated, order)
	return nil
}

func (h *handler) restock(w http.ResponseWriter, r *http.Request) error {
	var req RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	n, err := h.svc.Restock(r.Context(), req)
	if err != nil {
		return err
	}
	svckit.WriteJSON(w, http.StatusOK, map[string]int64{"skus": n})
	return nil
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	var limit int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ErrInvalidCursor
		}
		limit = n
	}

	page, err := h.svc.List(r.Context(), q.Get("customer"), q.Get("after"), limit)
	if err != nil {
		return err
	}
	svckit.WriteJSON(w, http.StatusOK, page)
	return nil
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) error {
	id, err := orderID(r)
	if err != nil {
		return err
	}

	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return err
	}
	svckit.WriteJSON(w, http.StatusOK, order)
	return nil
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) error {
	id, err := orderID(r)
	if err != nil {
		return err
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		return err
	}
	svckit.WriteJSON(w, http.StatusOK, nil)
	return nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) error {
	report := h.svc.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	svckit.WriteJSON(w, status, report)
	return nil
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidOrder
	}
	return id, nil
}
