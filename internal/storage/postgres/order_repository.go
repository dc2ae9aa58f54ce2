package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cabindev/support-sub000/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) GetCartForUpdate(ctx context.Context, cartID string) (domain.Cart, error) {
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

// ListCartLinesForUpdate locks the cart's lines for the commit transaction
// so a concurrent RemoveLine cannot race the materialization.
func (r *OrderRepository) ListCartLinesForUpdate(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	const query = `
SELECT id, cart_id, product_id, variant_id, quantity, unit_price, created_at
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at
FOR UPDATE`

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

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, status, total_amount, shipping_name, shipping_phone, shipping_address, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`

	_, err := r.exec(ctx, stmt,
		order.ID,
		order.Status,
		order.TotalAmount,
		order.Shipping.Name,
		order.Shipping.Phone,
		order.Shipping.Address,
		order.IdempotencyKey,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error {
	const stmt = `
INSERT INTO order_lines (id, order_id, product_id, variant_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5, $6)`

	for _, l := range lines {
		if _, err := r.exec(ctx, stmt, l.ID, l.OrderID, l.ProductID, l.VariantID, l.Quantity, l.UnitPrice); err != nil {
			return fmt.Errorf("create order line: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, status, total_amount, shipping_name, shipping_phone, shipping_address, COALESCE(idempotency_key, ''), created_at
FROM orders
WHERE id = $1`

	return r.scanOrder(r.queryRow(ctx, query, orderID))
}

func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, status, total_amount, shipping_name, shipping_phone, shipping_address, COALESCE(idempotency_key, ''), created_at
FROM orders
WHERE id = $1
FOR UPDATE`

	return r.scanOrder(r.queryRow(ctx, query, orderID))
}

func (r *OrderRepository) FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	const query = `
SELECT id, status, total_amount, shipping_name, shipping_phone, shipping_address, COALESCE(idempotency_key, ''), created_at
FROM orders
WHERE idempotency_key = $1`

	o, err := r.scanOrder(r.queryRow(ctx, query, key))
	if err != nil {
		if err == domain.ErrOrderNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	const query = `
SELECT id, order_id, product_id, variant_id, quantity, unit_price
FROM order_lines
WHERE order_id = $1
ORDER BY id`

	rows, err := r.query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	return lines, nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	const stmt = `UPDATE orders SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.Status,
		&o.TotalAmount,
		&o.Shipping.Name,
		&o.Shipping.Phone,
		&o.Shipping.Address,
		&o.IdempotencyKey,
		&o.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
