package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cabindev/support-sub000/internal/domain"
	"github.com/cabindev/support-sub000/internal/testutil"
)

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	repo := NewOrderRepository(pool)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	newOrder := func(idempotencyKey string) domain.Order {
		return domain.Order{
			ID:          uuid.NewString(),
			Status:      domain.OrderStatusPending,
			TotalAmount: decimal.RequireFromString("399.50"),
			Shipping: domain.ShippingInfo{
				Name:    "Ann",
				Phone:   "0891234567",
				Address: "12 Main St",
			},
			IdempotencyKey: idempotencyKey,
			CreatedAt:      now,
		}
	}

	t.Run("round trip with lines", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		order := newOrder("")
		if err := repo.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}

		lines := []domain.OrderLine{
			{
				ID: uuid.NewString(), OrderID: order.ID,
				ProductID: uuid.NewString(), VariantID: uuid.NewString(),
				Quantity: 2, UnitPrice: decimal.RequireFromString("120.00"),
			},
			{
				ID: uuid.NewString(), OrderID: order.ID,
				ProductID: uuid.NewString(), VariantID: uuid.NewString(),
				Quantity: 1, UnitPrice: decimal.RequireFromString("159.50"),
			},
		}
		if err := repo.CreateOrderLines(ctx, lines); err != nil {
			t.Fatalf("create order lines: %v", err)
		}

		got, err := repo.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.Status != domain.OrderStatusPending {
			t.Fatalf("expected pending, got %s", got.Status)
		}
		if !got.TotalAmount.Equal(order.TotalAmount) {
			t.Fatalf("expected total %s, got %s", order.TotalAmount, got.TotalAmount)
		}
		if got.Shipping != order.Shipping {
			t.Fatalf("expected shipping %+v, got %+v", order.Shipping, got.Shipping)
		}

		gotLines, err := repo.ListOrderLines(ctx, order.ID)
		if err != nil {
			t.Fatalf("list order lines: %v", err)
		}
		if len(gotLines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(gotLines))
		}
	})

	t.Run("missing order", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.GetOrder(ctx, uuid.NewString()); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("duplicate idempotency key is rejected", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		if err := repo.CreateOrder(ctx, newOrder("commit-1")); err != nil {
			t.Fatalf("create order: %v", err)
		}
		if err := repo.CreateOrder(ctx, newOrder("commit-1")); err != domain.ErrIdempotencyConflict {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
	})

	t.Run("orders without a key never collide", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		if err := repo.CreateOrder(ctx, newOrder("")); err != nil {
			t.Fatalf("create first order: %v", err)
		}
		if err := repo.CreateOrder(ctx, newOrder("")); err != nil {
			t.Fatalf("create second order: %v", err)
		}
	})

	t.Run("find by idempotency key", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		order := newOrder("commit-2")
		if err := repo.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}

		found, err := repo.FindOrderByIdempotencyKey(ctx, "commit-2")
		if err != nil {
			t.Fatalf("find by key: %v", err)
		}
		if found == nil || found.ID != order.ID {
			t.Fatalf("expected order %s, got %+v", order.ID, found)
		}

		missing, err := repo.FindOrderByIdempotencyKey(ctx, "commit-unknown")
		if err != nil {
			t.Fatalf("find missing key: %v", err)
		}
		if missing != nil {
			t.Fatalf("expected nil for unknown key, got %+v", missing)
		}
	})
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewOrderRepository(pool)
	order := domain.Order{
		ID:          uuid.NewString(),
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("100.00"),
		Shipping:    domain.ShippingInfo{Name: "Ann", Phone: "089", Address: "12 Main St"},
		CreatedAt:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := repo.GetOrderForUpdate(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}

	if err := repo.UpdateOrderStatus(ctx, uuid.NewString(), domain.OrderStatusPaid); err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListCartLinesForUpdate(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewOrderRepository(pool)
	key := testutil.InsertInventory(t, ctx, pool, 10)
	cartID, lineID := testutil.InsertCartWithLine(t, ctx, pool, "cust-1", key, 2, decimal.RequireFromString("120.00"))

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		cart, err := repo.GetCartForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.CustomerKey != "cust-1" {
			t.Fatalf("expected cust-1, got %s", cart.CustomerKey)
		}
		lines, err := repo.ListCartLinesForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if len(lines) != 1 || lines[0].ID != lineID {
			t.Fatalf("expected line %s, got %+v", lineID, lines)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}
}
