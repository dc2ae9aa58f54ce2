package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cabindev/support-sub000/internal/clock"
	"github.com/cabindev/support-sub000/internal/domain"
	"github.com/cabindev/support-sub000/internal/metrics"
)

// SweepRepository is the slice of cart storage the sweeper needs.
type SweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListIdleCarts(ctx context.Context, cutoff time.Time, limit int) ([]domain.Cart, error)
	ListLines(ctx context.Context, cartID string) ([]domain.CartLine, error)
	DeleteAllLines(ctx context.Context, cartID string) error
	DeleteCart(ctx context.Context, cartID string) error
}

const (
	defaultIdleTTL       = 24 * time.Hour
	defaultSweepInterval = 5 * time.Minute
	defaultSweepBatch    = 100
)

// CartSweeper releases reservations held by abandoned carts. Without it a
// stale cart withholds stock forever, since reservation happens at add
// time and only removal or commit ends it.
type CartSweeper struct {
	repo     SweepRepository
	ledger   Ledger
	clock    clock.Clock
	log      *zap.Logger
	idleTTL  time.Duration
	interval time.Duration
	batch    int
}

func NewCartSweeper(repo SweepRepository, ledger Ledger, clk clock.Clock, log *zap.Logger, opts ...SweeperOption) *CartSweeper {
	s := &CartSweeper{
		repo:     repo,
		ledger:   ledger,
		clock:    clk,
		log:      log,
		idleTTL:  defaultIdleTTL,
		interval: defaultSweepInterval,
		batch:    defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*CartSweeper)

// WithIdleTTL overrides how long a cart may sit untouched before its
// reservations are released.
func WithIdleTTL(d time.Duration) SweeperOption {
	return func(s *CartSweeper) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// WithSweepInterval overrides the pause between sweep passes.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *CartSweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepBatch overrides how many carts one pass may reclaim.
func WithSweepBatch(n int) SweeperOption {
	return func(s *CartSweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *CartSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error("cart sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				s.log.Info("released idle cart reservations", zap.Int("lines", released))
			}
		}
	}
}

// SweepOnce restocks and deletes one batch of idle carts in a single
// transaction. Returns the number of lines released.
func (s *CartSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.idleTTL)
	released := 0

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		carts, err := s.repo.ListIdleCarts(txCtx, cutoff, s.batch)
		if err != nil {
			return err
		}
		for _, cart := range carts {
			lines, err := s.repo.ListLines(txCtx, cart.ID)
			if err != nil {
				return err
			}
			for _, l := range lines {
				if err := s.ledger.Increment(txCtx, l.Key(), l.Quantity); err != nil {
					return err
				}
				released++
			}
			if err := s.repo.DeleteAllLines(txCtx, cart.ID); err != nil {
				return err
			}
			if err := s.repo.DeleteCart(txCtx, cart.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.CartLinesSwept.Add(float64(released))
	return released, nil
}
