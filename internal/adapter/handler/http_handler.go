package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
)

type HTTPHandler struct {
	products       *service.ProductService
	orders         *service.OrderService
	auth           Authenticator
	requestTimeout time.Duration
}

func NewHTTPHandler(products *service.ProductService, orders *service.OrderService, auth Authenticator, requestTimeout time.Duration) *HTTPHandler {
	return &HTTPHandler{
		products:       products,
		orders:         orders,
		auth:           auth,
		requestTimeout: requestTimeout,
	}
}

// Routes builds the router. Static segments such as /products/info win over
// /products/{id}.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if h.requestTimeout > 0 {
		r.Use(middleware.Timeout(h.requestTimeout))
	}
	r.Use(h.authenticate)

	r.Get("/health", h.HealthCheck)

	r.Route("/products", func(r chi.Router) {
		r.Use(h.enforce(productPolicy))
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/info", h.ProductInfo)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.ReplaceProduct)
		r.Patch("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.enforce(orderPolicy))
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}", h.ReplaceOrder)
		r.Patch("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.DeleteOrder)
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps domain errors onto status codes. Anything
// unrecognised is logged and reported as 500.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid input",
			Fields:  verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Not found.")
	case errors.Is(err, domain.ErrInvalidPage):
		writeError(w, http.StatusNotFound, "invalid_page", "Invalid page.")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeUnauthenticated(w, "Authentication credentials were not provided.")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action.")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			slog.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
