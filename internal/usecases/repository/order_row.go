package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/entities"
)

// orderRow mirrors one row of the orders table.
type orderRow struct {
	ID            string    `db:"id"`
	Type          string    `db:"type"`
	Status        string    `db:"status"`
	Quantity      string    `db:"quantity"`
	Price         *string   `db:"price"`
	Date          time.Time `db:"date"`
	Expiry        time.Time `db:"expiry"`
	LBCAddress    *string   `db:"lbc_address"`
	USDCAddress   *string   `db:"usdc_address"`
	LBCRequested  *string   `db:"lbc_requested"`
	USDCRequested *string   `db:"usdc_requested"`
}

func fromEntity(o entities.Order) orderRow {
	return orderRow{
		ID:            o.ID,
		Type:          string(o.Type),
		Status:        string(o.Status),
		Quantity:      o.Quantity.String(),
		Price:         nullDecimalText(o.Price),
		Date:          o.Date,
		Expiry:        o.Expiry,
		LBCAddress:    optionalText(o.LBCAddress),
		USDCAddress:   optionalText(o.USDCAddress),
		LBCRequested:  nullDecimalText(o.LBCRequested),
		USDCRequested: nullDecimalText(o.USDCRequested),
	}
}

func (r orderRow) toEntity() (entities.Order, error) {
	quantity, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return entities.Order{}, fmt.Errorf("invalid quantity in database for order %s: %w", r.ID, err)
	}

	order := entities.Order{
		ID:       r.ID,
		Type:     entities.OrderType(r.Type),
		Status:   entities.OrderStatus(r.Status),
		Quantity: quantity,
		Date:     r.Date.UTC(),
		Expiry:   r.Expiry.UTC(),
	}
	if r.LBCAddress != nil {
		order.LBCAddress = *r.LBCAddress
	}
	if r.USDCAddress != nil {
		order.USDCAddress = *r.USDCAddress
	}

	for _, field := range []struct {
		name string
		text *string
		dst  *decimal.NullDecimal
	}{
		{"price", r.Price, &order.Price},
		{"lbc_requested", r.LBCRequested, &order.LBCRequested},
		{"usdc_requested", r.USDCRequested, &order.USDCRequested},
	} {
		if field.text == nil {
			continue
		}
		value, err := decimal.NewFromString(*field.text)
		if err != nil {
			return entities.Order{}, fmt.Errorf("invalid %s in database for order %s: %w", field.name, r.ID, err)
		}
		*field.dst = decimal.NewNullDecimal(value)
	}

	return order, nil
}

func nullDecimalText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
