package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cabindev/support-sub000/internal/domain"
)

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *CartRepository) FindCartByCustomerKey(ctx context.Context, customerKey string) (*domain.Cart, error) {
	const query = `
SELECT id, customer_key, created_at, updated_at
FROM carts
WHERE customer_key = $1
FOR UPDATE`

	var c domain.Cart
	err := r.queryRow(ctx, query, customerKey).
		Scan(&c.ID, &c.CustomerKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find cart by customer key: %w", err)
	}
	return &c, nil
}

func (r *CartRepository) GetCartForUpdate(ctx context.Context, cartID string) (domain.Cart, error) {
	const query = `
SELECT id, customer_key, created_at, updated_at
FROM carts
WHERE id = $1
FOR UPDATE`

	var c domain.Cart
	err := r.queryRow(ctx, query, cartID).
		Scan(&c.ID, &c.CustomerKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Cart{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

func (r *CartRepository) CreateCart(ctx context.Context, cart domain.Cart) error {
	const stmt = `
INSERT INTO carts (id, customer_key, created_at, updated_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, cart.ID, cart.CustomerKey, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

// TouchCart refreshes updated_at so the expiry sweeper treats the cart as
// recently used.
func (r *CartRepository) TouchCart(ctx context.Context, cartID string, now time.Time) error {
	const stmt = `UPDATE carts SET updated_at = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, cartID, now)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (r *CartRepository) DeleteCart(ctx context.Context, cartID string) error {
	const stmt = `DELETE FROM carts WHERE id = $1`

	tag, err := r.exec(ctx, stmt, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (r *CartRepository) FindLine(ctx context.Context, cartID, productID, variantID string) (*domain.CartLine, error) {
	const query = `
SELECT id, cart_id, product_id, variant_id, quantity, unit_price, created_at
FROM cart_lines
WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
FOR UPDATE`

	var l domain.CartLine
	err := r.queryRow(ctx, query, cartID, productID, variantID).
		Scan(&l.ID, &l.CartID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice, &l.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find cart line: %w", err)
	}
	return &l, nil
}

func (r *CartRepository) GetLineForUpdate(ctx context.Context, lineID string) (domain.CartLine, error) {
	const query = `
SELECT id, cart_id, product_id, variant_id, quantity, unit_price, created_at
FROM cart_lines
WHERE id = $1
FOR UPDATE`

	var l domain.CartLine
	err := r.queryRow(ctx, query, lineID).
		Scan(&l.ID, &l.CartID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice, &l.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.CartLine{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.CartLine{}, domain.ErrCartLineNotFound
		}
		return domain.CartLine{}, fmt.Errorf("get cart line: %w", err)
	}
	return l, nil
}

func (r *CartRepository) CreateLine(ctx context.Context, line domain.CartLine) error {
	const stmt = `
INSERT INTO cart_lines (id, cart_id, product_id, variant_id, quantity, unit_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		line.ID,
		line.CartID,
		line.ProductID,
		line.VariantID,
		line.Quantity,
		line.UnitPrice,
		line.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create cart line: %w", err)
	}
	return nil
}

func (r *CartRepository) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	const stmt = `UPDATE cart_lines SET quantity = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, lineID, quantity)
	if err != nil {
		return fmt.Errorf("update cart line quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (r *CartRepository) DeleteLine(ctx context.Context, lineID string) error {
	const stmt = `DELETE FROM cart_lines WHERE id = $1`

	tag, err := r.exec(ctx, stmt, lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (r *CartRepository) DeleteAllLines(ctx context.Context, cartID string) error {
	const stmt = `DELETE FROM cart_lines WHERE cart_id = $1`

	if _, err := r.exec(ctx, stmt, cartID); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}

func (r *CartRepository) CountLines(ctx context.Context, cartID string) (int, error) {
	const query = `SELECT COUNT(*) FROM cart_lines WHERE cart_id = $1`

	var n int
	if err := r.queryRow(ctx, query, cartID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cart lines: %w", err)
	}
	return n, nil
}

func (r *CartRepository) ListLines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	const query = `
SELECT id, cart_id, product_id, variant_id, quantity, unit_price, created_at
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at`

	rows, err := r.query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.CartID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return lines, nil
}

// ListIdleCarts returns carts untouched since the cutoff, oldest first,
// locked for the sweep transaction. SKIP LOCKED keeps concurrent customer
// requests from blocking behind the sweeper.
func (r *CartRepository) ListIdleCarts(ctx context.Context, cutoff time.Time, limit int) ([]domain.Cart, error) {
	const query = `
SELECT id, customer_key, created_at, updated_at
FROM carts
WHERE updated_at < $1
ORDER BY updated_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

	rows, err := r.query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list idle carts: %w", err)
	}
	defer rows.Close()

	var carts []domain.Cart
	for rows.Next() {
		var c domain.Cart
		if err := rows.Scan(&c.ID, &c.CustomerKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list idle carts: %w", err)
	}
	return carts, nil
}

func (r *CartRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CartRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *CartRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
