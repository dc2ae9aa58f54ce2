package domain

import "errors"

var (
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrCustomerKeyRequired    = errors.New("customer key required")
	ErrVariantNotFound        = errors.New("product variant not found")
	ErrCartNotFound           = errors.New("cart not found")
	ErrCartLineNotFound       = errors.New("cart line not found")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrOrderNotFound          = errors.New("order not found")
	ErrAlreadyAttached        = errors.New("payment attachment already exists")
	ErrArtifactURLRequired    = errors.New("artifact url required")
	ErrAttachmentNotFound     = errors.New("payment attachment not found")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrInvalidShippingInfo    = errors.New("invalid shipping info")
	ErrInvalidID              = errors.New("invalid id")
)
