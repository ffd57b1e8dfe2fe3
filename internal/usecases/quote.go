package usecases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/core/ports"
	"github.com/sand/lbc-exchange/backend/internal/entities"
)

// FeeRate is the flat fee charged on the USDC side of every trade.
var FeeRate = decimal.RequireFromString("0.01")

// QuoteService computes quotes. It holds no state besides its clock.
type QuoteService struct {
	now func() time.Time
	ttl time.Duration
}

func NewQuoteService(now func() time.Time) *QuoteService {
	if now == nil {
		now = time.Now
	}
	return &QuoteService{now: now, ttl: ports.QuoteTTL}
}

// ComputeQuote prices amount at rate. A zero amount or rate yields (nil, nil):
// there is simply nothing to quote yet. Negative inputs are validation errors.
//
// Buyers pay subtotal plus fee, sellers receive subtotal minus fee.
func (s *QuoteService) ComputeQuote(side entities.Side, amount decimal.Decimal, sourceIsUSDC bool, rate decimal.Decimal) (*entities.Quote, error) {
	if side != entities.SideBuy && side != entities.SideSell {
		return nil, newValidationError("side", "must be buy or sell")
	}
	if amount.IsNegative() {
		return nil, newValidationError("amount", "must be positive")
	}
	if rate.IsNegative() {
		return nil, newValidationError("rate", "must be positive")
	}
	if amount.IsZero() || rate.IsZero() {
		return nil, nil
	}

	var lbcAmount, subtotal decimal.Decimal
	if sourceIsUSDC {
		subtotal = amount
		lbcAmount = amount.Div(rate)
	} else {
		lbcAmount = amount
		subtotal = amount.Mul(rate)
	}

	roundedSubtotal := subtotal.Round(ports.CurrencyDecimals)
	fee := subtotal.Mul(FeeRate).Round(ports.CurrencyDecimals)

	total := roundedSubtotal.Add(fee)
	if side == entities.SideSell {
		total = roundedSubtotal.Sub(fee)
	}

	return &entities.Quote{
		Side:             side,
		SourceAmount:     amount,
		SourceIsUSDC:     sourceIsUSDC,
		DerivedLBCAmount: lbcAmount,
		LBCAmount:        lbcAmount.Round(ports.CurrencyDecimals),
		USDCSubtotal:     roundedSubtotal,
		FeeAmount:        fee,
		USDCTotal:        total,
		RateUsed:         rate,
		ValidUntil:       s.now().Add(s.ttl),
	}, nil
}

// CheckQuote rejects a submission backed by a quote that is no longer valid.
// A zero validUntil means the client did not reference a quote.
func (s *QuoteService) CheckQuote(validUntil time.Time) error {
	if validUntil.IsZero() {
		return nil
	}
	if !s.now().Before(validUntil) {
		return ErrQuoteExpired
	}
	return nil
}
