package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the trade direction from the customer's point of view.
type OrderType string

const (
	OrderTypeBuyLBC  OrderType = "buyLBC"
	OrderTypeSellLBC OrderType = "sellLBC"
)

// OrderStatus is the settlement state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus returns the status named by s and whether it is recognised.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusFilled, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// CanTransitionTo reports whether s -> next is allowed. Only pending orders move,
// and only into a terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && next.IsTerminal()
}

// Order is the persisted record of a customer's intent to trade at a locked price.
type Order struct {
	ID     string      `json:"id"`
	Type   OrderType   `json:"type"`
	Status OrderStatus `json:"status"`

	Quantity decimal.Decimal     `json:"quantity"`
	Price    decimal.NullDecimal `json:"price"`

	Date   time.Time `json:"date"`
	Expiry time.Time `json:"expiry"`

	LBCAddress  string `json:"LBC_Address,omitempty"`
	USDCAddress string `json:"USDC_Address,omitempty"`

	LBCRequested  decimal.NullDecimal `json:"LBC_Requested"`
	USDCRequested decimal.NullDecimal `json:"USDC_Requested"`
}

// IsExpired reports whether the order's actionable window has closed at now.
func (o *Order) IsExpired(now time.Time) bool {
	return !now.Before(o.Expiry)
}

// OrderRequest is one of the two order variants accepted for creation.
// Each variant carries exactly the fields its type requires.
type OrderRequest interface {
	OrderType() OrderType
}

// BuyOrder asks the operator to deliver LBC to LBCAddress in exchange for USDC.
type BuyOrder struct {
	LBCAddress  string
	USDCAddress string
	Quantity    decimal.Decimal
	Price       decimal.NullDecimal
}

func (BuyOrder) OrderType() OrderType { return OrderTypeBuyLBC }

// SellOrder asks the operator to pay USDC to USDCAddress for LBC sent to the managed address.
type SellOrder struct {
	USDCAddress string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
}

func (SellOrder) OrderType() OrderType { return OrderTypeSellLBC }

// OrderFilter narrows an order listing. Zero values mean "no constraint".
type OrderFilter struct {
	Status  OrderStatus
	Address string
	Limit   int
}
