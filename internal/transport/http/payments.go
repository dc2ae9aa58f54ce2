package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cabindev/support-sub000/internal/app"
	"github.com/cabindev/support-sub000/internal/domain"
)

// PaymentTracker is the slice of the payment component the HTTP layer uses.
type PaymentTracker interface {
	Attach(ctx context.Context, in app.AttachInput) (domain.PaymentAttachment, error)
	Verify(ctx context.Context, in app.VerifyInput) (domain.Order, error)
}

// HandleAttachPayment records the order's single proof-of-payment artifact.
func HandleAttachPayment(svc PaymentTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attachPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		att, err := svc.Attach(r.Context(), app.AttachInput{
			OrderID:     chi.URLParam(r, "orderID"),
			ArtifactURL: req.ArtifactURL,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAttachmentResponse(att))
	}
}

// HandleVerifyPayment records the verification decision for the order's
// payment artifact.
func HandleVerifyPayment(svc PaymentTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		order, err := svc.Verify(r.Context(), app.VerifyInput{
			OrderID: chi.URLParam(r, "orderID"),
			Approve: req.Approve,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
	}
}

type attachPaymentRequest struct {
	ArtifactURL string `json:"artifact_url"`
}

type verifyPaymentRequest struct {
	Approve bool `json:"approve"`
}

type attachmentResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	ArtifactURL string     `json:"artifact_url"`
	Verified    bool       `json:"verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toAttachmentResponse(a domain.PaymentAttachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID,
		OrderID:     a.OrderID,
		ArtifactURL: a.ArtifactURL,
		Verified:    a.Verified,
		VerifiedAt:  a.VerifiedAt,
		CreatedAt:   a.CreatedAt,
	}
}
