package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds tentative stock reservations for one customer. It is created
// lazily on the first AddLine and deleted when its last line is removed.
type Cart struct {
	ID          string
	CustomerKey string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine is a reservation against one inventory entry. The referenced
// stock was already decremented when the line was created or grown.
type CartLine struct {
	ID        string
	CartID    string
	ProductID string
	VariantID string
	Quantity  int
	// UnitPrice is snapshotted at add time; later catalog price changes do
	// not affect it.
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

func (l CartLine) Key() VariantKey {
	return VariantKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// Subtotal is quantity times the snapshotted unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
