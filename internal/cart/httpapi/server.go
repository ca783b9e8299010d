// Package httpapi exposes the cart store over HTTP for the storefront UI.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rocketshoes/cart/internal/cart/app"
	"github.com/rocketshoes/cart/internal/pricing"
	"github.com/rocketshoes/cart/internal/summary"
)

type Server struct {
	store  *app.Store
	view   *summary.View
	pricer *pricing.Service
	log    *slog.Logger
}

func NewServer(store *app.Store, view *summary.View, pricer *pricing.Service, log *slog.Logger) *Server {
	return &Server{store: store, view: view, pricer: pricer, log: log}
}

// Router builds the public surface: the cart snapshot, the three mutations,
// and the derived summary and quote views.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/cart", s.getCart).Methods(http.MethodGet)
	api.HandleFunc("/cart/summary", s.getSummary).Methods(http.MethodGet)
	api.HandleFunc("/cart/quote", s.getQuote).Methods(http.MethodGet)
	api.HandleFunc("/cart/items/{productID}", s.addItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{productID}", s.updateItem).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{productID}", s.removeItem).Methods(http.MethodDelete)

	return s.requestID(s.logRequests(r))
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Cart())
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	count := s.view.Count()
	writeJSON(w, http.StatusOK, map[string]any{
		"count": count,
		"label": summary.Label(count),
	})
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.pricer.Quote(r.Context(), s.store.Cart())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFrom(w, r)
	if !ok {
		return
	}

	if err := s.store.AddProduct(r.Context(), productID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Cart())
}

type updateItemRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFrom(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "body must carry a non-zero amount"))
		return
	}

	if err := s.store.UpdateProductAmount(r.Context(), productID, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Cart())
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFrom(w, r)
	if !ok {
		return
	}

	if err := s.store.RemoveProduct(r.Context(), productID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Cart())
}

func productIDFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["productID"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_PRODUCT_ID", "product id must be an integer"))
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := statusFromError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", slog.Any("err", err))
	}
	writeJSON(w, status, errorBody(code, err.Error()))
}

// statusFromError maps the store's sentinel errors onto HTTP statuses.
// Anything unrecognized is treated as an upstream service fault.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrOutOfStock):
		return http.StatusConflict, "OUT_OF_STOCK"
	case errors.Is(err, app.ErrNotInCart):
		return http.StatusNotFound, "NOT_IN_CART"
	case errors.Is(err, app.ErrProductNotFound):
		return http.StatusNotFound, "PRODUCT_NOT_FOUND"
	case errors.Is(err, app.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	default:
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	}
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]string{"code": code, "message": message},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)),
		)
	})
}
