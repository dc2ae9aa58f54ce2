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

func TestPaymentRepository_Attachments(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	orders := NewOrderRepository(pool)
	repo := NewPaymentRepository(pool)
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	seedOrder := func(t *testing.T) string {
		t.Helper()
		testutil.TruncateAll(t, ctx, pool)
		order := domain.Order{
			ID:          uuid.NewString(),
			Status:      domain.OrderStatusPending,
			TotalAmount: decimal.RequireFromString("100.00"),
			Shipping:    domain.ShippingInfo{Name: "Ann", Phone: "089", Address: "12 Main St"},
			CreatedAt:   now,
		}
		if err := orders.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}
		return order.ID
	}

	t.Run("create and find", func(t *testing.T) {
		orderID := seedOrder(t)

		att := domain.PaymentAttachment{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ArtifactURL: "uploads/slips/abc.pdf",
			CreatedAt:   now,
		}
		if err := repo.CreateAttachment(ctx, att); err != nil {
			t.Fatalf("create attachment: %v", err)
		}

		found, err := repo.FindAttachmentByOrderID(ctx, orderID)
		if err != nil {
			t.Fatalf("find attachment: %v", err)
		}
		if found == nil || found.ID != att.ID {
			t.Fatalf("expected attachment %s, got %+v", att.ID, found)
		}
		if found.Verified || found.VerifiedAt != nil {
			t.Fatalf("new attachment must be unverified: %+v", found)
		}
	})

	t.Run("one attachment per order", func(t *testing.T) {
		orderID := seedOrder(t)

		first := domain.PaymentAttachment{ID: uuid.NewString(), OrderID: orderID, ArtifactURL: "uploads/slips/abc.pdf", CreatedAt: now}
		if err := repo.CreateAttachment(ctx, first); err != nil {
			t.Fatalf("create attachment: %v", err)
		}
		second := domain.PaymentAttachment{ID: uuid.NewString(), OrderID: orderID, ArtifactURL: "uploads/slips/def.pdf", CreatedAt: now}
		if err := repo.CreateAttachment(ctx, second); err != domain.ErrAlreadyAttached {
			t.Fatalf("expected ErrAlreadyAttached, got %v", err)
		}
	})

	t.Run("missing attachment is nil", func(t *testing.T) {
		orderID := seedOrder(t)

		found, err := repo.FindAttachmentByOrderID(ctx, orderID)
		if err != nil {
			t.Fatalf("find attachment: %v", err)
		}
		if found != nil {
			t.Fatalf("expected nil, got %+v", found)
		}
	})

	t.Run("verification stamp round trips", func(t *testing.T) {
		orderID := seedOrder(t)

		att := domain.PaymentAttachment{ID: uuid.NewString(), OrderID: orderID, ArtifactURL: "uploads/slips/abc.pdf", CreatedAt: now}
		if err := repo.CreateAttachment(ctx, att); err != nil {
			t.Fatalf("create attachment: %v", err)
		}

		verifiedAt := now.Add(time.Hour)
		if err := repo.UpdateAttachmentVerification(ctx, att.ID, true, &verifiedAt); err != nil {
			t.Fatalf("update verification: %v", err)
		}
		found, err := repo.FindAttachmentByOrderID(ctx, orderID)
		if err != nil {
			t.Fatalf("find attachment: %v", err)
		}
		if !found.Verified || found.VerifiedAt == nil || !found.VerifiedAt.Equal(verifiedAt) {
			t.Fatalf("expected verified at %v, got %+v", verifiedAt, found)
		}

		if err := repo.UpdateAttachmentVerification(ctx, att.ID, false, nil); err != nil {
			t.Fatalf("clear verification: %v", err)
		}
		found, err = repo.FindAttachmentByOrderID(ctx, orderID)
		if err != nil {
			t.Fatalf("find attachment: %v", err)
		}
		if found.Verified || found.VerifiedAt != nil {
			t.Fatalf("expected verification cleared, got %+v", found)
		}
	})

	t.Run("update missing attachment", func(t *testing.T) {
		seedOrder(t)

		if err := repo.UpdateAttachmentVerification(ctx, uuid.NewString(), true, &now); err != domain.ErrAttachmentNotFound {
			t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
		}
	})
}
