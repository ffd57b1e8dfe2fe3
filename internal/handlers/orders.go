package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/entities"
	"github.com/sand/lbc-exchange/backend/internal/usecases"
)

type buyOrderRequest struct {
	LBCAddress      string          `json:"LBC_Address"`
	USDCAddress     string          `json:"USDC_Address"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuoteValidUntil time.Time       `json:"quoteValidUntil"`
}

type sellOrderRequest struct {
	USDCAddress     string          `json:"USDC_Address"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuoteValidUntil time.Time       `json:"quoteValidUntil"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type buyOrderResponse struct {
	entities.Order
	USDCNeeded decimal.Decimal `json:"usdcNeeded"`
}

// GetOrders lists the newest orders, optionally filtered with ?status=.
func (h *HTTPHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	status := entities.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.orderService.ListOrders(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrdersByAddress returns every order placed for a counterparty address.
func (h *HTTPHandler) GetOrdersByAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	orders, err := h.orderService.GetOrdersByAddress(r.Context(), address)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// CreateBuyOrder locks the current rate into a new buyLBC order and reports the USDC the buyer owes.
func (h *HTTPHandler) CreateBuyOrder(w http.ResponseWriter, r *http.Request) {
	var req buyOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.quoteService.CheckQuote(req.QuoteValidUntil); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rate := h.rateService.GetRate()
	order, err := h.orderService.CreateBuyOrder(r.Context(), entities.BuyOrder{
		LBCAddress:  req.LBCAddress,
		USDCAddress: req.USDCAddress,
		Quantity:    req.Quantity,
		Price:       decimal.NewNullDecimal(rate),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	quote, err := h.quoteService.ComputeQuote(entities.SideBuy, order.Quantity, false, rate)
	if err != nil || quote == nil {
		h.logger.Error("Failed to price created buy order", "order_id", order.ID, "error", err)
		writeJSON(w, http.StatusOK, buyOrderResponse{Order: order})
		return
	}

	writeJSON(w, http.StatusOK, buyOrderResponse{Order: order, USDCNeeded: quote.USDCTotal})
}

// CreateSellOrder locks the current rate into a new sellLBC order.
func (h *HTTPHandler) CreateSellOrder(w http.ResponseWriter, r *http.Request) {
	var req sellOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.quoteService.CheckQuote(req.QuoteValidUntil); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	order, err := h.orderService.CreateSellOrder(r.Context(), entities.SellOrder{
		USDCAddress: req.USDCAddress,
		Quantity:    req.Quantity,
		Price:       h.rateService.GetRate(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus settles or cancels a pending order.
func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status, ok := entities.ParseOrderStatus(req.Status)
	if !ok {
		h.writeServiceError(w, r, &usecases.ValidationError{Field: "status", Reason: "must be pending, filled or cancelled"})
		return
	}

	order, err := h.orderService.TransitionStatus(r.Context(), orderID, status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
