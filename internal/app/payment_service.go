package app

import (
	"context"
	"time"

	"github.com/cabindev/support-sub000/internal/clock"
	"github.com/cabindev/support-sub000/internal/domain"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	FindAttachmentByOrderID(ctx context.Context, orderID string) (*domain.PaymentAttachment, error)
	CreateAttachment(ctx context.Context, att domain.PaymentAttachment) error
	UpdateAttachmentVerification(ctx context.Context, attachmentID string, verified bool, verifiedAt *time.Time) error
}

// PaymentService records proof-of-payment artifacts and drives the order
// status machine. It never touches inventory.
type PaymentService struct {
	repo  PaymentRepository
	clock clock.Clock
}

func NewPaymentService(repo PaymentRepository, clk clock.Clock) *PaymentService {
	return &PaymentService{
		repo:  repo,
		clock: clk,
	}
}

type AttachInput struct {
	OrderID     string
	ArtifactURL string
}

// Attach stores the order's single payment artifact and moves the order to
// paid. A second attachment is rejected, by this check and by the unique
// constraint underneath.
func (s *PaymentService) Attach(ctx context.Context, in AttachInput) (domain.PaymentAttachment, error) {
	if in.ArtifactURL == "" {
		return domain.PaymentAttachment{}, domain.ErrArtifactURLRequired
	}

	now := s.clock.Now()
	var result domain.PaymentAttachment

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindAttachmentByOrderID(txCtx, order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyAttached
		}

		if !order.Status.CanTransitionTo(domain.OrderStatusPaid) {
			return domain.ErrInvalidStateTransition
		}

		att := domain.PaymentAttachment{
			ID:          newID(),
			OrderID:     order.ID,
			ArtifactURL: in.ArtifactURL,
			Verified:    false,
			CreatedAt:   now,
		}
		if err := s.repo.CreateAttachment(txCtx, att); err != nil {
			return err
		}
		if err := s.repo.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusPaid); err != nil {
			return err
		}

		result = att
		return nil
	})
	if err != nil {
		return domain.PaymentAttachment{}, err
	}
	return result, nil
}

type VerifyInput struct {
	OrderID string
	Approve bool
}

// Verify records the verification decision. Approval moves the order to
// verified; rejection leaves it paid so an operator can re-verify or
// cancel explicitly. Rejection never restocks.
func (s *PaymentService) Verify(ctx context.Context, in VerifyInput) (domain.Order, error) {
	now := s.clock.Now()
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}

		att, err := s.repo.FindAttachmentByOrderID(txCtx, order.ID)
		if err != nil {
			return err
		}
		if att == nil {
			return domain.ErrAttachmentNotFound
		}

		if order.Status != domain.OrderStatusPaid {
			return domain.ErrInvalidStateTransition
		}

		if in.Approve {
			if err := s.repo.UpdateAttachmentVerification(txCtx, att.ID, true, &now); err != nil {
				return err
			}
			if err := s.repo.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusVerified); err != nil {
				return err
			}
			order.Status = domain.OrderStatusVerified
		} else {
			if err := s.repo.UpdateAttachmentVerification(txCtx, att.ID, false, nil); err != nil {
				return err
			}
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}
