package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cabindev/support-sub000/internal/clock"
	"github.com/cabindev/support-sub000/internal/domain"
)

func TestPaymentService_Attach(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	seed := func(status domain.OrderStatus) (*PaymentService, *fakePaymentRepo) {
		repo := newFakePaymentRepo()
		repo.orders["order-1"] = domain.Order{ID: "order-1", Status: status, TotalAmount: decimal.RequireFromString("100.00"), CreatedAt: now}
		return NewPaymentService(repo, clock.NewFixed(now)), repo
	}

	t.Run("stores artifact and moves order to paid", func(t *testing.T) {
		svc, repo := seed(domain.OrderStatusPending)

		att, err := svc.Attach(context.Background(), AttachInput{OrderID: "order-1", ArtifactURL: "uploads/slips/abc.pdf"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if att.Verified {
			t.Fatalf("new attachment must be unverified")
		}
		if repo.orders["order-1"].Status != domain.OrderStatusPaid {
			t.Fatalf("expected order paid, got %s", repo.orders["order-1"].Status)
		}
	})

	t.Run("second attachment is rejected", func(t *testing.T) {
		svc, repo := seed(domain.OrderStatusPending)

		if _, err := svc.Attach(context.Background(), AttachInput{OrderID: "order-1", ArtifactURL: "uploads/slips/abc.pdf"}); err != nil {
			t.Fatalf("first attach failed: %v", err)
		}
		_, err := svc.Attach(context.Background(), AttachInput{OrderID: "order-1", ArtifactURL: "uploads/slips/def.pdf"})
		if err != domain.ErrAlreadyAttached {
			t.Fatalf("expected ErrAlreadyAttached, got %v", err)
		}
		if len(repo.attachments) != 1 {
			t.Fatalf("expected one attachment, got %d", len(repo.attachments))
		}
	})

	t.Run("cancelled order rejects attach", func(t *testing.T) {
		svc, _ := seed(domain.OrderStatusCancelled)

		_, err := svc.Attach(context.Background(), AttachInput{OrderID: "order-1", ArtifactURL: "uploads/slips/abc.pdf"})
		if err != domain.ErrInvalidStateTransition {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("missing order", func(t *testing.T) {
		svc, _ := seed(domain.OrderStatusPending)

		_, err := svc.Attach(context.Background(), AttachInput{OrderID: "order-x", ArtifactURL: "uploads/slips/abc.pdf"})
		if err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("missing artifact url", func(t *testing.T) {
		svc, _ := seed(domain.OrderStatusPending)

		_, err := svc.Attach(context.Background(), AttachInput{OrderID: "order-1"})
		if err != domain.ErrArtifactURLRequired {
			t.Fatalf("expected ErrArtifactURLRequired, got %v", err)
		}
	})
}

func TestPaymentService_Verify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	seed := func(status domain.OrderStatus, withAttachment bool) (*PaymentService, *fakePaymentRepo) {
		repo := newFakePaymentRepo()
		repo.orders["order-1"] = domain.Order{ID: "order-1", Status: status, TotalAmount: decimal.RequireFromString("100.00"), CreatedAt: now}
		if withAttachment {
			repo.attachments["att-1"] = domain.PaymentAttachment{ID: "att-1", OrderID: "order-1", ArtifactURL: "uploads/slips/abc.pdf", CreatedAt: now}
		}
		return NewPaymentService(repo, clock.NewFixed(now)), repo
	}

	t.Run("approval verifies order and stamps the attachment", func(t *testing.T) {
		svc, repo := seed(domain.OrderStatusPaid, true)

		order, err := svc.Verify(context.Background(), VerifyInput{OrderID: "order-1", Approve: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Status != domain.OrderStatusVerified {
			t.Fatalf("expected verified, got %s", order.Status)
		}
		att := repo.attachments["att-1"]
		if !att.Verified {
			t.Fatalf("expected attachment verified")
		}
		if att.VerifiedAt == nil || !att.VerifiedAt.Equal(now) {
			t.Fatalf("expected verified_at %v, got %v", now, att.VerifiedAt)
		}
	})

	t.Run("rejection keeps order paid and does not restock", func(t *testing.T) {
		svc, repo := seed(domain.OrderStatusPaid, true)

		order, err := svc.Verify(context.Background(), VerifyInput{OrderID: "order-1", Approve: false})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Status != domain.OrderStatusPaid {
			t.Fatalf("expected order to stay paid, got %s", order.Status)
		}
		att := repo.attachments["att-1"]
		if att.Verified {
			t.Fatalf("expected attachment unverified")
		}
		if att.VerifiedAt != nil {
			t.Fatalf("expected no verified_at on rejection")
		}
	})

	t.Run("pending order has nothing to verify", func(t *testing.T) {
		svc, _ := seed(domain.OrderStatusPending, false)

		_, err := svc.Verify(context.Background(), VerifyInput{OrderID: "order-1", Approve: true})
		if err != domain.ErrAttachmentNotFound {
			t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
		}
	})

	t.Run("verified order is terminal", func(t *testing.T) {
		svc, _ := seed(domain.OrderStatusVerified, true)

		_, err := svc.Verify(context.Background(), VerifyInput{OrderID: "order-1", Approve: true})
		if err != domain.ErrInvalidStateTransition {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}
	})
}

type fakePaymentRepo struct {
	orders      map[string]domain.Order
	attachments map[string]domain.PaymentAttachment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		orders:      make(map[string]domain.Order),
		attachments: make(map[string]domain.PaymentAttachment),
	}
}

func (f *fakePaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakePaymentRepo) GetOrderForUpdate(_ context.Context, orderID string) (domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakePaymentRepo) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	f.orders[orderID] = o
	return nil
}

func (f *fakePaymentRepo) FindAttachmentByOrderID(_ context.Context, orderID string) (*domain.PaymentAttachment, error) {
	for _, a := range f.attachments {
		if a.OrderID == orderID {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) CreateAttachment(_ context.Context, att domain.PaymentAttachment) error {
	for _, a := range f.attachments {
		if a.OrderID == att.OrderID {
			return domain.ErrAlreadyAttached
		}
	}
	f.attachments[att.ID] = att
	return nil
}

func (f *fakePaymentRepo) UpdateAttachmentVerification(_ context.Context, attachmentID string, verified bool, verifiedAt *time.Time) error {
	a, ok := f.attachments[attachmentID]
	if !ok {
		return domain.ErrAttachmentNotFound
	}
	a.Verified = verified
	a.VerifiedAt = verifiedAt
	f.attachments[attachmentID] = a
	return nil
}
