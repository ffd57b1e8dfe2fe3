package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/entities"
)

// OrderService defines the order lifecycle operations.
type OrderService interface {
	CreateBuyOrder(ctx context.Context, req entities.BuyOrder) (entities.Order, error)
	CreateSellOrder(ctx context.Context, req entities.SellOrder) (entities.Order, error)
	TransitionStatus(ctx context.Context, orderID string, next entities.OrderStatus) (entities.Order, error)
	ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error)
	GetOrdersByAddress(ctx context.Context, address string) ([]entities.Order, error)
	CancelExpiredOrders(ctx context.Context) (int, error)
}

// RateService holds the process-wide LBC/USDC rate.
type RateService interface {
	GetRate() decimal.Decimal
	SetRate(rate decimal.Decimal) (decimal.Decimal, error)
}

// QuoteService prices a prospective trade.
type QuoteService interface {
	ComputeQuote(side entities.Side, amount decimal.Decimal, sourceIsUSDC bool, rate decimal.Decimal) (*entities.Quote, error)
	CheckQuote(validUntil time.Time) error
}

// RateLimiter bounds how often a client may submit orders.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
