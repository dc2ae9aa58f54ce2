package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cabindev/support-sub000/internal/domain"
)

// InventoryLedger is the only mutation path for available stock. Both
// operations run on the transaction carried in ctx when one is present, so
// services can pair a ledger call with its cart/order mutation atomically.
type InventoryLedger struct {
	pool *pgxpool.Pool
}

func NewInventoryLedger(pool *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{pool: pool}
}

func (l *InventoryLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, l.pool, fn)
}

// TryDecrement subtracts amount if and only if enough stock remains. The
// check and the write are one conditional UPDATE, so concurrent requests
// against the same row cannot interleave a stale read.
func (l *InventoryLedger) TryDecrement(ctx context.Context, key domain.VariantKey, amount int) error {
	const stmt = `
UPDATE inventory
SET available_stock = available_stock - $3
WHERE product_id = $1 AND variant_id = $2 AND available_stock >= $3`

	tag, err := l.exec(ctx, stmt, key.ProductID, key.VariantID, amount)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either the entry does not exist or the stock was
		// short; tell them apart inside the same transaction.
		exists, err := l.entryExists(ctx, key)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrVariantNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// Increment adds amount back unconditionally. Used to reverse a prior
// successful TryDecrement.
func (l *InventoryLedger) Increment(ctx context.Context, key domain.VariantKey, amount int) error {
	const stmt = `
UPDATE inventory
SET available_stock = available_stock + $3
WHERE product_id = $1 AND variant_id = $2`

	tag, err := l.exec(ctx, stmt, key.ProductID, key.VariantID, amount)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

// GetEntry reads the current counter. Read-only, for handlers and tests.
func (l *InventoryLedger) GetEntry(ctx context.Context, key domain.VariantKey) (domain.InventoryEntry, error) {
	const query = `
SELECT available_stock FROM inventory WHERE product_id = $1 AND variant_id = $2`

	entry := domain.InventoryEntry{Key: key}
	err := l.queryRow(ctx, query, key.ProductID, key.VariantID).Scan(&entry.AvailableStock)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.InventoryEntry{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.InventoryEntry{}, domain.ErrVariantNotFound
		}
		return domain.InventoryEntry{}, fmt.Errorf("get inventory entry: %w", err)
	}
	return entry, nil
}

func (l *InventoryLedger) entryExists(ctx context.Context, key domain.VariantKey) (bool, error) {
	const query = `
SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id = $1 AND variant_id = $2)`

	var exists bool
	if err := l.queryRow(ctx, query, key.ProductID, key.VariantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check inventory entry: %w", err)
	}
	return exists, nil
}

func (l *InventoryLedger) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return l.pool.Exec(ctx, sql, args...)
}

func (l *InventoryLedger) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return l.pool.QueryRow(ctx, sql, args...)
}
