package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/core/ports"
	"github.com/sand/lbc-exchange/backend/internal/shared"
	"github.com/sand/lbc-exchange/backend/internal/usecases"
)

// Settings carries the operator-facing constants served by the API.
type Settings struct {
	OperatorToken      string
	InformationalPrice decimal.Decimal
	ManagedLBCAddress  string
	ManagedUSDCAddress string
	// ClientIPs resolves the limiter key. Nil keys on the direct peer address.
	ClientIPs          *shared.ClientIPResolver
}

type HTTPHandler struct {
	logger       *slog.Logger
	orderService ports.OrderService
	rateService  ports.RateService
	quoteService ports.QuoteService
	limiter      ports.RateLimiter
	settings     Settings
}

// NewHTTPHandler wires the API. limiter may be nil, in which case submissions are not limited.
func NewHTTPHandler(
	logger *slog.Logger,
	orderService ports.OrderService,
	rateService ports.RateService,
	quoteService ports.QuoteService,
	limiter ports.RateLimiter,
	settings Settings,
) *HTTPHandler {
	return &HTTPHandler{
		logger:       logger,
		orderService: orderService,
		rateService:  rateService,
		quoteService: quoteService,
		limiter:      limiter,
		settings:     settings,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Orders
	router.Handle("/orders/buy", h.limitSubmissions(http.HandlerFunc(h.CreateBuyOrder))).Methods("POST")
	router.Handle("/orders/sell", h.limitSubmissions(http.HandlerFunc(h.CreateSellOrder))).Methods("POST")
	router.HandleFunc("/orders", h.GetOrders).Methods("GET")
	router.HandleFunc("/orders/{address}", h.GetOrdersByAddress).Methods("GET")
	router.Handle("/orders/{id}", h.requireOperator(http.HandlerFunc(h.UpdateOrderStatus))).Methods("PUT")

	// Pricing
	router.HandleFunc("/price", h.GetPrice).Methods("GET")
	router.HandleFunc("/rate", h.GetRate).Methods("GET")
	router.Handle("/rate", h.requireOperator(http.HandlerFunc(h.SetRate))).Methods("POST")
	router.HandleFunc("/quote", h.GetQuote).Methods("GET")

	// Custody
	router.HandleFunc("/getManagedLBCReceivingAddress", h.GetManagedLBCReceivingAddress).Methods("GET")
	router.HandleFunc("/getManagedUSDCReceivingAddress", h.GetManagedUSDCReceivingAddress).Methods("GET")
}

// requireOperator rejects requests without the operator bearer token.
func (h *HTTPHandler) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := shared.BearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.settings.OperatorToken)) != 1 {
			h.logger.Warn("Rejected operator request", "path", r.URL.Path, "remote", h.settings.ClientIPs.ClientIP(r))
			writeError(w, http.StatusUnauthorized, usecases.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitSubmissions applies the per-client order rate limit. A limiter failure lets the request through.
func (h *HTTPHandler) limitSubmissions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := h.settings.ClientIPs.ClientIP(r)
		allowed, err := h.limiter.Allow(r.Context(), ip)
		if err != nil {
			h.logger.Error("Rate limiter unavailable", "error", err, "client", ip)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, usecases.ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeServiceError maps a use-case error onto a status code. Unexpected errors are logged
// and reported to the client without detail.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *usecases.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, usecases.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecases.ErrNotFound):
		writeError(w, http.StatusNotFound, usecases.ErrNotFound.Error())
	case errors.Is(err, usecases.ErrInvalidTransition):
		writeError(w, http.StatusConflict, usecases.ErrInvalidTransition.Error())
	case errors.Is(err, usecases.ErrQuoteExpired):
		writeError(w, http.StatusGone, usecases.ErrQuoteExpired.Error())
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &usecases.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}
