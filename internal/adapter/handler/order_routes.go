package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

const dateLayout = "2006-01-02"

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	orders, err := h.orders.List(r.Context(), PrincipalFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(orders))
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := req.status()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	order, err := h.orders.Create(r.Context(), PrincipalFrom(r.Context()), status, req.lines())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrder(order))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

// ReplaceOrder serves PUT: the item list is required and replaces the
// current one.
func (h *HTTPHandler) ReplaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Items == nil {
		h.writeServiceError(w, r, domain.NewValidationError("items", "This field is required."))
		return
	}
	h.applyOrderUpdate(w, r, id, req)
}

// UpdateOrder serves PATCH: omitted fields stay as they are.
func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.applyOrderUpdate(w, r, id, req)
}

func (h *HTTPHandler) applyOrderUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID, req OrderRequest) {
	status, err := req.status()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	order, err := h.orders.Update(r.Context(), PrincipalFrom(r.Context()), id, domain.OrderUpdate{
		Status: status,
		Lines:  req.lines(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), PrincipalFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Not found.")
		return uuid.Nil, false
	}
	return id, true
}

// parseOrderQuery reads status and creation-time predicates. created_at
// matches a calendar day; created_at__lt and __gt take a date (midnight
// UTC) or an RFC 3339 timestamp.
func parseOrderQuery(q url.Values) (domain.OrderFilter, error) {
	var (
		filter domain.OrderFilter
		verr   = &domain.ValidationError{}
	)

	if v := q.Get("status"); v != "" {
		st, err := domain.ParseOrderStatus(v)
		if err != nil {
			verr.Add("status", "Select a valid choice.")
		} else {
			filter.Status = &st
		}
	}

	if v := q.Get("created_at"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			verr.Add("created_at", "Enter a valid date.")
		} else {
			filter.CreatedOn = &d
		}
	}

	filter.CreatedBefore = parseTimeParam(q, "created_at__lt", verr)
	filter.CreatedAfter = parseTimeParam(q, "created_at__gt", verr)

	if err := verr.OrNil(); err != nil {
		return domain.OrderFilter{}, err
	}
	return filter, nil
}

func parseTimeParam(q url.Values, key string, verr *domain.ValidationError) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	if t, err := time.ParseInLocation(dateLayout, v, time.UTC); err == nil {
		return &t
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		verr.Add(key, "Enter a valid date/time.")
		return nil
	}
	t = t.UTC()
	return &t
}
