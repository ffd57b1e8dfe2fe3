package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side selects the direction of the fee applied to a quote.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Quote is a short-lived price computation shown before an order is submitted.
// It is never persisted.
type Quote struct {
	Side         Side            `json:"side"`
	SourceAmount decimal.Decimal `json:"sourceAmount"`
	SourceIsUSDC bool            `json:"sourceIsUSDC"`

	// DerivedLBCAmount is unrounded; LBCAmount is what an order built from this quote uses.
	DerivedLBCAmount decimal.Decimal `json:"derivedLBCAmount"`
	LBCAmount        decimal.Decimal `json:"lbcAmount"`

	USDCSubtotal decimal.Decimal `json:"usdcSubtotal"`
	FeeAmount    decimal.Decimal `json:"feeAmount"`
	USDCTotal    decimal.Decimal `json:"usdcTotal"`
	RateUsed     decimal.Decimal `json:"rateUsed"`

	ValidUntil time.Time `json:"validUntil"`
}

// Valid reports whether the quote can still back a submission at now.
func (q *Quote) Valid(now time.Time) bool {
	return now.Before(q.ValidUntil)
}
