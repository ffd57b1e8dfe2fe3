package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/core/ports"
	"github.com/sand/lbc-exchange/backend/internal/entities"
	"github.com/sand/lbc-exchange/backend/internal/usecases/repository"
)

type OrdersRepository interface {
	InsertOrder(ctx context.Context, order entities.Order) error
	FindOrderByID(ctx context.Context, id string) (entities.Order, error)
	FindOrders(ctx context.Context, filter entities.OrderFilter) ([]entities.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to entities.OrderStatus) (entities.Order, error)
	FindExpiredPendingOrders(ctx context.Context, now time.Time) ([]entities.Order, error)
}

// OrderOptions tunes order construction.
type OrderOptions struct {
	// Expiry is added to the creation time to get an order's expiry.
	Expiry time.Duration
	// RequireBuyerUSDCAddress makes USDC_Address mandatory on buy orders.
	RequireBuyerUSDCAddress bool
}

// OrderService runs the order state machine on top of the store.
type OrderService struct {
	logger *slog.Logger
	repo   OrdersRepository
	opts   OrderOptions
	now    func() time.Time
}

var _ ports.OrderService = (*OrderService)(nil)

func NewOrderService(logger *slog.Logger, repo OrdersRepository, opts OrderOptions, now func() time.Time) *OrderService {
	if opts.Expiry <= 0 {
		opts.Expiry = ports.DefaultOrderExpiry
	}
	if now == nil {
		now = time.Now
	}
	return &OrderService{logger: logger, repo: repo, opts: opts, now: now}
}

// CreateBuyOrder validates and persists a new pending buyLBC order.
func (os *OrderService) CreateBuyOrder(ctx context.Context, req entities.BuyOrder) (entities.Order, error) {
	const op = "OrderService.CreateBuyOrder"

	if req.LBCAddress == "" {
		return entities.Order{}, newValidationError("LBC_Address", "is required")
	}
	if err := ValidateLBCAddress(req.LBCAddress); err != nil {
		return entities.Order{}, err
	}
	if req.USDCAddress == "" && os.opts.RequireBuyerUSDCAddress {
		return entities.Order{}, newValidationError("USDC_Address", "is required")
	}
	if req.USDCAddress != "" {
		if err := ValidateUSDCAddress(req.USDCAddress); err != nil {
			return entities.Order{}, err
		}
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return entities.Order{}, err
	}
	if req.Price.Valid && !req.Price.Decimal.IsPositive() {
		return entities.Order{}, newValidationError("price", "must be positive")
	}

	order := os.newOrder(entities.OrderTypeBuyLBC, req.Quantity)
	order.Price = req.Price
	order.LBCAddress = req.LBCAddress
	order.USDCAddress = req.USDCAddress
	order.LBCRequested = decimal.NewNullDecimal(req.Quantity)
	if req.Price.Valid {
		order.USDCRequested = decimal.NewNullDecimal(req.Quantity.Mul(req.Price.Decimal).Round(ports.CurrencyDecimals))
	}

	if err := os.repo.InsertOrder(ctx, order); err != nil {
		return entities.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	os.logger.InfoContext(ctx, "Buy order created", "order_id", order.ID, "quantity", order.Quantity.String(), "lbc_address", order.LBCAddress)
	return order, nil
}

// CreateSellOrder validates and persists a new pending sellLBC order. Price is mandatory.
func (os *OrderService) CreateSellOrder(ctx context.Context, req entities.SellOrder) (entities.Order, error) {
	const op = "OrderService.CreateSellOrder"

	if req.USDCAddress == "" {
		return entities.Order{}, newValidationError("USDC_Address", "is required")
	}
	if err := ValidateUSDCAddress(req.USDCAddress); err != nil {
		return entities.Order{}, err
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return entities.Order{}, err
	}
	if !req.Price.IsPositive() {
		return entities.Order{}, newValidationError("price", "is required")
	}

	order := os.newOrder(entities.OrderTypeSellLBC, req.Quantity)
	order.Price = decimal.NewNullDecimal(req.Price)
	order.USDCAddress = req.USDCAddress
	order.LBCRequested = decimal.NewNullDecimal(req.Quantity)
	order.USDCRequested = decimal.NewNullDecimal(req.Quantity.Mul(req.Price).Round(ports.CurrencyDecimals))

	if err := os.repo.InsertOrder(ctx, order); err != nil {
		return entities.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	os.logger.InfoContext(ctx, "Sell order created", "order_id", order.ID, "quantity", order.Quantity.String(), "usdc_address", order.USDCAddress)
	return order, nil
}

// TransitionStatus moves a pending order into a terminal status. Only the status changes.
func (os *OrderService) TransitionStatus(ctx context.Context, orderID string, next entities.OrderStatus) (entities.Order, error) {
	const op = "OrderService.TransitionStatus"

	if _, ok := entities.ParseOrderStatus(string(next)); !ok {
		return entities.Order{}, fmt.Errorf("%s: unknown status %q: %w", op, next, ErrInvalidTransition)
	}

	current, err := os.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return entities.Order{}, os.translate(op, err)
	}
	if !current.Status.CanTransitionTo(next) {
		return entities.Order{}, fmt.Errorf("%s: %s -> %s: %w", op, current.Status, next, ErrInvalidTransition)
	}

	updated, err := os.repo.UpdateOrderStatus(ctx, orderID, current.Status, next)
	if err != nil {
		return entities.Order{}, os.translate(op, err)
	}

	os.logger.InfoContext(ctx, "Order status changed", "order_id", orderID, "from", current.Status, "to", next)
	return updated, nil
}

// ListOrders returns the newest orders, optionally restricted to one status.
func (os *OrderService) ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error) {
	const op = "OrderService.ListOrders"

	if status != "" {
		if _, ok := entities.ParseOrderStatus(string(status)); !ok {
			return nil, newValidationError("status", "unknown status")
		}
	}

	orders, err := os.repo.FindOrders(ctx, entities.OrderFilter{Status: status, Limit: ports.MaxListedOrders})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// GetOrdersByAddress returns every order whose LBC or USDC address equals address, newest first.
func (os *OrderService) GetOrdersByAddress(ctx context.Context, address string) ([]entities.Order, error) {
	const op = "OrderService.GetOrdersByAddress"

	if address == "" {
		return nil, newValidationError("address", "is required")
	}

	orders, err := os.repo.FindOrders(ctx, entities.OrderFilter{Address: address})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return orders, nil
}

// CancelExpiredOrders cancels every pending order past its expiry and returns how many it cancelled.
// Orders settled concurrently by an operator are skipped.
func (os *OrderService) CancelExpiredOrders(ctx context.Context) (int, error) {
	const op = "OrderService.CancelExpiredOrders"

	expired, err := os.repo.FindExpiredPendingOrders(ctx, os.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	cancelled := 0
	for _, order := range expired {
		_, err = os.TransitionStatus(ctx, order.ID, entities.OrderStatusCancelled)
		switch {
		case err == nil:
			cancelled++
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
			os.logger.DebugContext(ctx, "Expired order already settled", "order_id", order.ID, "error", err)
		default:
			return cancelled, fmt.Errorf("%s: %w", op, err)
		}
	}
	return cancelled, nil
}

func (os *OrderService) newOrder(orderType entities.OrderType, quantity decimal.Decimal) entities.Order {
	now := os.now().UTC()
	return entities.Order{
		ID:       uuid.NewString(),
		Type:     orderType,
		Status:   entities.OrderStatusPending,
		Quantity: quantity,
		Date:     now,
		Expiry:   now.Add(os.opts.Expiry),
	}
}

func (os *OrderService) translate(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrStatusChanged):
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validateQuantity(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return newValidationError("quantity", "must be a positive amount")
	}
	return nil
}
