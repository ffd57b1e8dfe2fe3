package workers

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredOrderCanceller is the part of the order service the expirer drives.
type ExpiredOrderCanceller interface {
	CancelExpiredOrders(ctx context.Context) (int, error)
}

// OrderExpirer periodically cancels pending orders whose expiry has passed
type OrderExpirer struct {
	logger       *slog.Logger
	orderService ExpiredOrderCanceller

	// How often to look for expired orders
	sweepInterval time.Duration
}

func NewOrderExpirer(logger *slog.Logger, orderService ExpiredOrderCanceller, sweepInterval time.Duration) *OrderExpirer {
	return &OrderExpirer{
		logger:        logger,
		orderService:  orderService,
		sweepInterval: sweepInterval,
	}
}

// Start runs one sweep immediately, then one per interval until ctx is done.
func (oe *OrderExpirer) Start(ctx context.Context) {
	oe.logger.Info("Starting order expirer worker", "sweep_interval", oe.sweepInterval.String())

	if err := oe.Sweep(ctx); err != nil {
		oe.logger.Error("Initial order sweep failed", "error", err)
	}

	ticker := time.NewTicker(oe.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			oe.logger.Info("Order expirer worker stopped")
			return
		case <-ticker.C:
			if err := oe.Sweep(ctx); err != nil {
				oe.logger.Error("Order sweep failed", "error", err)
			}
		}
	}
}

// Sweep cancels every expired pending order once.
func (oe *OrderExpirer) Sweep(ctx context.Context) error {
	count, err := oe.orderService.CancelExpiredOrders(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		oe.logger.Info("Cancelled expired orders", "count", count)
	} else {
		oe.logger.Debug("No expired orders to cancel")
	}

	return nil
}
