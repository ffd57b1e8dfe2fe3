package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sand/lbc-exchange/backend/internal/entities"
)

var ErrOrderAlreadyExists = errors.New("order already exists")

// MemoryOrdersRepository keeps orders in process memory. Contents are lost on restart.
type MemoryOrdersRepository struct {
	orders map[string]entities.Order
	mu     sync.RWMutex
}

func NewMemoryOrdersRepository() *MemoryOrdersRepository {
	return &MemoryOrdersRepository{
		orders: make(map[string]entities.Order, 1024),
	}
}

func (s *MemoryOrdersRepository) InsertOrder(ctx context.Context, order entities.Order) error {
	const op = "repository.MemoryOrdersRepository.InsertOrder"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.orders[order.ID]; found {
		return fmt.Errorf("%s: %w", op, ErrOrderAlreadyExists)
	}

	s.orders[order.ID] = order
	return nil
}

func (s *MemoryOrdersRepository) FindOrderByID(ctx context.Context, id string) (entities.Order, error) {
	const op = "repository.MemoryOrdersRepository.FindOrderByID"

	if err := ctx.Err(); err != nil {
		return entities.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	order, found := s.orders[id]
	s.mu.RUnlock()

	if !found {
		return entities.Order{}, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
	}
	return order, nil
}

func (s *MemoryOrdersRepository) FindOrders(ctx context.Context, filter entities.OrderFilter) ([]entities.Order, error) {
	const op = "repository.MemoryOrdersRepository.FindOrders"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	result := make([]entities.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.Address != "" && order.USDCAddress != filter.Address && order.LBCAddress != filter.Address {
			continue
		}
		result = append(result, order)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.After(result[j].Date)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemoryOrdersRepository) UpdateOrderStatus(ctx context.Context, id string, from, to entities.OrderStatus) (entities.Order, error) {
	const op = "repository.MemoryOrdersRepository.UpdateOrderStatus"

	if err := ctx.Err(); err != nil {
		return entities.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, found := s.orders[id]
	if !found {
		return entities.Order{}, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
	}
	if order.Status != from {
		return entities.Order{}, fmt.Errorf("%s: %w", op, ErrStatusChanged)
	}

	order.Status = to
	s.orders[id] = order
	return order, nil
}

func (s *MemoryOrdersRepository) FindExpiredPendingOrders(ctx context.Context, now time.Time) ([]entities.Order, error) {
	const op = "repository.MemoryOrdersRepository.FindExpiredPendingOrders"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	var expired []entities.Order
	for _, order := range s.orders {
		if order.Status == entities.OrderStatusPending && order.IsExpired(now) {
			expired = append(expired, order)
		}
	}
	s.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool { return expired[i].Expiry.Before(expired[j].Expiry) })
	return expired, nil
}
