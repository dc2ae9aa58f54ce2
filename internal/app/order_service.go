package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cabindev/support-sub000/internal/clock"
	"github.com/cabindev/support-sub000/internal/domain"
	"github.com/cabindev/support-sub000/internal/metrics"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCartForUpdate(ctx context.Context, cartID string) (domain.Cart, error)
	ListCartLinesForUpdate(ctx context.Context, cartID string) ([]domain.CartLine, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// CartStore is the slice of the cart component the commit path needs.
type CartStore interface {
	ClearCart(ctx context.Context, cartID string) error
}

// OrderService materializes carts into immutable orders. Stock was already
// decremented when each line was reserved, so Commit makes no ledger calls;
// Cancel is the only path that restocks committed inventory.
type OrderService struct {
	repo   OrderRepository
	carts  CartStore
	ledger Ledger
	clock  clock.Clock
}

func NewOrderService(repo OrderRepository, carts CartStore, ledger Ledger, clk clock.Clock) *OrderService {
	return &OrderService{
		repo:   repo,
		carts:  carts,
		ledger: ledger,
		clock:  clk,
	}
}

type CommitInput struct {
	CartID      string
	CustomerKey string
	Shipping    domain.ShippingInfo
	// IdempotencyKey, when set, makes a retried commit return the order the
	// first attempt created instead of failing on the consumed cart.
	IdempotencyKey string
}

type CommitResult struct {
	Order   domain.Order
	Lines   []domain.OrderLine
	Created bool
}

func (s *OrderService) Commit(ctx context.Context, in CommitInput) (CommitResult, error) {
	if err := in.Shipping.Validate(); err != nil {
		return CommitResult{}, err
	}

	now := s.clock.Now()
	var result CommitResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if in.IdempotencyKey != "" {
			existing, err := s.repo.FindOrderByIdempotencyKey(txCtx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				lines, err := s.repo.ListOrderLines(txCtx, existing.ID)
				if err != nil {
					return err
				}
				result = CommitResult{Order: *existing, Lines: lines, Created: false}
				return nil
			}
		}

		cart, err := s.repo.GetCartForUpdate(txCtx, in.CartID)
		if err != nil {
			return err
		}
		if in.CustomerKey != "" && cart.CustomerKey != in.CustomerKey {
			return domain.ErrCartNotFound
		}

		cartLines, err := s.repo.ListCartLinesForUpdate(txCtx, cart.ID)
		if err != nil {
			return err
		}
		if len(cartLines) == 0 {
			return domain.ErrEmptyCart
		}

		order := domain.Order{
			ID:             newID(),
			Status:         domain.OrderStatusPending,
			TotalAmount:    decimal.Zero,
			Shipping:       in.Shipping,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
		}

		lines := make([]domain.OrderLine, 0, len(cartLines))
		for _, cl := range cartLines {
			lines = append(lines, domain.OrderLine{
				ID:        newID(),
				OrderID:   order.ID,
				ProductID: cl.ProductID,
				VariantID: cl.VariantID,
				Quantity:  cl.Quantity,
				UnitPrice: cl.UnitPrice,
			})
			order.TotalAmount = order.TotalAmount.Add(cl.Subtotal())
		}

		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			// A concurrent commit with the same key wins the race; return
			// its order to keep retries idempotent.
			if errors.Is(err, domain.ErrIdempotencyConflict) && in.IdempotencyKey != "" {
				existing, findErr := s.repo.FindOrderByIdempotencyKey(txCtx, in.IdempotencyKey)
				if findErr != nil {
					return findErr
				}
				if existing != nil {
					existingLines, linesErr := s.repo.ListOrderLines(txCtx, existing.ID)
					if linesErr != nil {
						return linesErr
					}
					result = CommitResult{Order: *existing, Lines: existingLines, Created: false}
					return nil
				}
			}
			return err
		}
		if err := s.repo.CreateOrderLines(txCtx, lines); err != nil {
			return err
		}
		// No restock here: the order now owns the reserved stock.
		if err := s.carts.ClearCart(txCtx, cart.ID); err != nil {
			return err
		}

		result = CommitResult{Order: order, Lines: lines, Created: true}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}
	if result.Created {
		metrics.OrdersCommitted.Inc()
	}
	return result, nil
}

// Cancel restocks every order line and marks the order cancelled. Allowed
// from pending or paid; verified and cancelled orders are terminal.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return domain.ErrInvalidStateTransition
		}

		lines, err := s.repo.ListOrderLines(txCtx, order.ID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := s.ledger.Increment(txCtx, l.Key(), l.Quantity); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusCancelled); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	metrics.OrdersCancelled.Inc()
	return result, nil
}

// GetOrder returns the order and its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, []domain.OrderLine, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	lines, err := s.repo.ListOrderLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	return order, lines, nil
}
