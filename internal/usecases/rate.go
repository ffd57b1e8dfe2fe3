package usecases

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// RateService owns the current USDC-per-LBC rate. Readers never block each other;
// the last writer wins. The rate is not persisted.
type RateService struct {
	logger *slog.Logger

	mu       sync.RWMutex
	rate     decimal.Decimal
	onUpdate func(decimal.Decimal)
}

// NewRateService creates a rate holder seeded with initial.
// onUpdate, if set, is called after every successful change.
func NewRateService(logger *slog.Logger, initial decimal.Decimal, onUpdate func(decimal.Decimal)) (*RateService, error) {
	if err := validateRate(initial); err != nil {
		return nil, err
	}
	return &RateService{logger: logger, rate: initial, onUpdate: onUpdate}, nil
}

// GetRate returns the last value set.
func (s *RateService) GetRate() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate
}

// SetRate replaces the rate. An invalid value leaves the current rate untouched.
func (s *RateService) SetRate(rate decimal.Decimal) (decimal.Decimal, error) {
	if err := validateRate(rate); err != nil {
		return decimal.Zero, err
	}

	s.mu.Lock()
	previous := s.rate
	s.rate = rate
	s.mu.Unlock()

	s.logger.Info("Rate updated", "previous", previous.String(), "rate", rate.String())

	if s.onUpdate != nil {
		s.onUpdate(rate)
	}
	return rate, nil
}

func validateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return newValidationError("rate", "must be a positive number")
	}
	return nil
}
