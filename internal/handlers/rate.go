package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/entities"
	"github.com/sand/lbc-exchange/backend/internal/shared"
	"github.com/sand/lbc-exchange/backend/internal/usecases"
)

type setRateRequest struct {
	Rate decimal.NullDecimal `json:"rate"`
}

func (h *HTTPHandler) GetPrice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"price": h.settings.InformationalPrice})
}

func (h *HTTPHandler) GetRate(w http.ResponseWriter, _ *http.Request) {
	rate := h.rateService.GetRate()
	writeJSON(w, http.StatusOK, map[string]any{
		"rate":    rate,
		"example": shared.RateExample(rate),
	})
}

func (h *HTTPHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req setRateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !req.Rate.Valid {
		h.writeServiceError(w, r, &usecases.ValidationError{Field: "rate", Reason: "is required"})
		return
	}

	rate, err := h.rateService.SetRate(req.Rate.Decimal)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rate": rate})
}

// GetQuote prices ?amount= of ?currency= (LBC or USDC) for ?side= (buy or sell) at the current rate.
// Without an amount there is nothing to quote and the response is empty.
func (h *HTTPHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rawAmount := query.Get("amount")
	if rawAmount == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		h.writeServiceError(w, r, &usecases.ValidationError{Field: "amount", Reason: "must be a decimal number"})
		return
	}

	var sourceIsUSDC bool
	switch strings.ToUpper(query.Get("currency")) {
	case "", "LBC":
	case "USDC":
		sourceIsUSDC = true
	default:
		h.writeServiceError(w, r, &usecases.ValidationError{Field: "currency", Reason: "must be LBC or USDC"})
		return
	}

	side := entities.Side(strings.ToLower(query.Get("side")))
	if side == "" {
		side = entities.SideBuy
	}

	quote, err := h.quoteService.ComputeQuote(side, amount, sourceIsUSDC, h.rateService.GetRate())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if quote == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *HTTPHandler) GetManagedLBCReceivingAddress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"address": h.settings.ManagedLBCAddress})
}

func (h *HTTPHandler) GetManagedUSDCReceivingAddress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"address": h.settings.ManagedUSDCAddress})
}
