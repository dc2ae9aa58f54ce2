package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusVerified  OrderStatus = "verified"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransitionTo reports whether the status change is legal:
// pending -> paid -> verified, with cancellation allowed from pending or
// paid. Verified and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusVerified || next == OrderStatusCancelled
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusVerified || s == OrderStatusCancelled
}

// ShippingInfo is captured once at commit time.
type ShippingInfo struct {
	Name    string
	Phone   string
	Address string
}

func (s ShippingInfo) Validate() error {
	if s.Name == "" || s.Phone == "" || s.Address == "" {
		return ErrInvalidShippingInfo
	}
	return nil
}

// Order is the immutable materialization of a committed cart. Only Status
// changes after creation; lines and the total never do.
type Order struct {
	ID             string
	Status         OrderStatus
	TotalAmount    decimal.Decimal
	Shipping       ShippingInfo
	IdempotencyKey string
	CreatedAt      time.Time
}

// OrderLine carries the quantity and price snapshot copied from the cart
// line it was materialized from.
type OrderLine struct {
	ID        string
	OrderID   string
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Key() VariantKey {
	return VariantKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
