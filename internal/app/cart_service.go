package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cabindev/support-sub000/internal/clock"
	"github.com/cabindev/support-sub000/internal/domain"
	"github.com/cabindev/support-sub000/internal/metrics"
)

// Ledger is the inventory counter. TryDecrement fails with
// domain.ErrInsufficientStock instead of driving the counter negative;
// Increment always succeeds for an existing entry.
type Ledger interface {
	TryDecrement(ctx context.Context, key domain.VariantKey, amount int) error
	Increment(ctx context.Context, key domain.VariantKey, amount int) error
}

type CartRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindCartByCustomerKey(ctx context.Context, customerKey string) (*domain.Cart, error)
	GetCartForUpdate(ctx context.Context, cartID string) (domain.Cart, error)
	CreateCart(ctx context.Context, cart domain.Cart) error
	TouchCart(ctx context.Context, cartID string, now time.Time) error
	DeleteCart(ctx context.Context, cartID string) error
	FindLine(ctx context.Context, cartID, productID, variantID string) (*domain.CartLine, error)
	GetLineForUpdate(ctx context.Context, lineID string) (domain.CartLine, error)
	CreateLine(ctx context.Context, line domain.CartLine) error
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteLine(ctx context.Context, lineID string) error
	DeleteAllLines(ctx context.Context, cartID string) error
	CountLines(ctx context.Context, cartID string) (int, error)
	ListLines(ctx context.Context, cartID string) ([]domain.CartLine, error)
}

// CartService keeps tentative reservations consistent with the ledger.
// Every ledger call is paired with its cart-line mutation inside one
// transaction, so a failed operation leaves both untouched.
type CartService struct {
	repo   CartRepository
	ledger Ledger
	clock  clock.Clock
}

func NewCartService(repo CartRepository, ledger Ledger, clk clock.Clock) *CartService {
	return &CartService{
		repo:   repo,
		ledger: ledger,
		clock:  clk,
	}
}

type AddLineInput struct {
	CustomerKey string
	ProductID   string
	VariantID   string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// AddLine reserves stock for the customer's cart, creating the cart lazily.
// Adding a variant already in the cart merges into the existing line: the
// new units are reserved on top and the original price snapshot is kept.
func (s *CartService) AddLine(ctx context.Context, in AddLineInput) (domain.CartLine, error) {
	if in.CustomerKey == "" {
		return domain.CartLine{}, domain.ErrCustomerKeyRequired
	}
	if in.ProductID == "" || in.VariantID == "" {
		return domain.CartLine{}, domain.ErrInvalidID
	}
	if in.Quantity <= 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return domain.CartLine{}, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	key := domain.VariantKey{ProductID: in.ProductID, VariantID: in.VariantID}
	var result domain.CartLine

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		cart, err := s.repo.FindCartByCustomerKey(txCtx, in.CustomerKey)
		if err != nil {
			return err
		}
		if cart == nil {
			created := domain.Cart{
				ID:          newID(),
				CustomerKey: in.CustomerKey,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.CreateCart(txCtx, created); err != nil {
				return err
			}
			cart = &created
		} else if err := s.repo.TouchCart(txCtx, cart.ID, now); err != nil {
			return err
		}

		if err := s.ledger.TryDecrement(txCtx, key, in.Quantity); err != nil {
			return err
		}

		existing, err := s.repo.FindLine(txCtx, cart.ID, in.ProductID, in.VariantID)
		if err != nil {
			return err
		}
		if existing != nil {
			merged := existing.Quantity + in.Quantity
			if err := s.repo.UpdateLineQuantity(txCtx, existing.ID, merged); err != nil {
				return err
			}
			existing.Quantity = merged
			result = *existing
			return nil
		}

		line := domain.CartLine{
			ID:        newID(),
			CartID:    cart.ID,
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			CreatedAt: now,
		}
		if err := s.repo.CreateLine(txCtx, line); err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.StockRejections.WithLabelValues("add_line").Inc()
		}
		return domain.CartLine{}, err
	}
	return result, nil
}

type AdjustQuantityInput struct {
	CustomerKey string
	LineID      string
	NewQuantity int
}

// AdjustQuantity moves a line to the new quantity, reserving the positive
// delta or releasing the negative one. Going to zero is RemoveLine's job.
func (s *CartService) AdjustQuantity(ctx context.Context, in AdjustQuantityInput) (domain.CartLine, error) {
	if in.CustomerKey == "" {
		return domain.CartLine{}, domain.ErrCustomerKeyRequired
	}
	if in.NewQuantity < 1 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	var result domain.CartLine

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		line, err := s.lineOwnedBy(txCtx, in.LineID, in.CustomerKey)
		if err != nil {
			return err
		}

		delta := in.NewQuantity - line.Quantity
		switch {
		case delta > 0:
			if err := s.ledger.TryDecrement(txCtx, line.Key(), delta); err != nil {
				return err
			}
		case delta < 0:
			if err := s.ledger.Increment(txCtx, line.Key(), -delta); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateLineQuantity(txCtx, line.ID, in.NewQuantity); err != nil {
			return err
		}
		if err := s.repo.TouchCart(txCtx, line.CartID, now); err != nil {
			return err
		}

		line.Quantity = in.NewQuantity
		result = line
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.StockRejections.WithLabelValues("adjust_quantity").Inc()
		}
		return domain.CartLine{}, err
	}
	return result, nil
}

type RemoveLineInput struct {
	CustomerKey string
	LineID      string
}

// RemoveLine releases the line's reservation and deletes it. Removing the
// cart's last line deletes the cart itself.
func (s *CartService) RemoveLine(ctx context.Context, in RemoveLineInput) error {
	if in.CustomerKey == "" {
		return domain.ErrCustomerKeyRequired
	}

	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		line, err := s.lineOwnedBy(txCtx, in.LineID, in.CustomerKey)
		if err != nil {
			return err
		}

		if err := s.ledger.Increment(txCtx, line.Key(), line.Quantity); err != nil {
			return err
		}
		if err := s.repo.DeleteLine(txCtx, line.ID); err != nil {
			return err
		}

		remaining, err := s.repo.CountLines(txCtx, line.CartID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.repo.DeleteCart(txCtx, line.CartID)
		}
		return s.repo.TouchCart(txCtx, line.CartID, now)
	})
}

// ClearCart deletes all lines and the cart without restocking. Only the
// commit path may call it: the committed order now owns the decrement.
func (s *CartService) ClearCart(ctx context.Context, cartID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.DeleteAllLines(txCtx, cartID); err != nil {
			return err
		}
		return s.repo.DeleteCart(txCtx, cartID)
	})
}

// GetCart returns the customer's cart and its lines.
func (s *CartService) GetCart(ctx context.Context, customerKey string) (domain.Cart, []domain.CartLine, error) {
	if customerKey == "" {
		return domain.Cart{}, nil, domain.ErrCustomerKeyRequired
	}

	var (
		cart  domain.Cart
		lines []domain.CartLine
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindCartByCustomerKey(txCtx, customerKey)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrCartNotFound
		}
		cart = *found
		lines, err = s.repo.ListLines(txCtx, cart.ID)
		return err
	})
	if err != nil {
		return domain.Cart{}, nil, err
	}
	return cart, lines, nil
}

func (s *CartService) lineOwnedBy(ctx context.Context, lineID, customerKey string) (domain.CartLine, error) {
	line, err := s.repo.GetLineForUpdate(ctx, lineID)
	if err != nil {
		return domain.CartLine{}, err
	}
	cart, err := s.repo.GetCartForUpdate(ctx, line.CartID)
	if err != nil {
		return domain.CartLine{}, err
	}
	// Another customer's line is indistinguishable from a missing one.
	if cart.CustomerKey != customerKey {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	return line, nil
}
