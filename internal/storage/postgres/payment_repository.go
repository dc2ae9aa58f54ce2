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

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *PaymentRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, status, total_amount, shipping_name, shipping_phone, shipping_address, COALESCE(idempotency_key, ''), created_at
FROM orders
WHERE id = $1
FOR UPDATE`

	var o domain.Order
	err := r.queryRow(ctx, query, orderID).Scan(
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

func (r *PaymentRepository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
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

func (r *PaymentRepository) FindAttachmentByOrderID(ctx context.Context, orderID string) (*domain.PaymentAttachment, error) {
	const query = `
SELECT id, order_id, artifact_url, verified, verified_at, created_at
FROM payment_attachments
WHERE order_id = $1`

	var a domain.PaymentAttachment
	err := r.queryRow(ctx, query, orderID).
		Scan(&a.ID, &a.OrderID, &a.ArtifactURL, &a.Verified, &a.VerifiedAt, &a.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find payment attachment: %w", err)
	}
	return &a, nil
}

func (r *PaymentRepository) CreateAttachment(ctx context.Context, att domain.PaymentAttachment) error {
	const stmt = `
INSERT INTO payment_attachments (id, order_id, artifact_url, verified, verified_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, att.ID, att.OrderID, att.ArtifactURL, att.Verified, att.VerifiedAt, att.CreatedAt)
	if err != nil {
		// order_id carries a unique constraint: one attachment per order.
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAttached
		}
		return fmt.Errorf("create payment attachment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) UpdateAttachmentVerification(ctx context.Context, attachmentID string, verified bool, verifiedAt *time.Time) error {
	const stmt = `UPDATE payment_attachments SET verified = $2, verified_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, attachmentID, verified, verifiedAt)
	if err != nil {
		return fmt.Errorf("update payment attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

func (r *PaymentRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *PaymentRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
