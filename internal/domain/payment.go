package domain

import "time"

// PaymentAttachment is the single proof-of-payment artifact for an order.
// At most one exists per order, enforced by a unique constraint as well as
// the application check.
type PaymentAttachment struct {
	ID          string
	OrderID     string
	ArtifactURL string
	Verified    bool
	VerifiedAt  *time.Time
	CreatedAt   time.Time
}
