package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cabindev/support-sub000/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeCustomerKeyRequired  = "customer_key_required"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidPrice         = "invalid_price"
	codeInvalidID            = "invalid_id"
	codeInvalidShippingInfo  = "invalid_shipping_info"
	codeArtifactURLRequired  = "artifact_url_required"
	codeInsufficientStock    = "insufficient_stock"
	codeEmptyCart            = "empty_cart"
	codeVariantNotFound      = "variant_not_found"
	codeCartNotFound         = "cart_not_found"
	codeCartLineNotFound     = "cart_line_not_found"
	codeOrderNotFound        = "order_not_found"
	codeAttachmentNotFound   = "attachment_not_found"
	codeAlreadyAttached      = "already_attached"
	codeInvalidState         = "invalid_state_transition"
	codeIdempotencyConflict  = "idempotency_conflict"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the core's typed errors onto HTTP statuses and
// machine-readable codes. Unknown errors become opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, codeEmptyCart, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidShippingInfo):
		writeError(w, http.StatusBadRequest, codeInvalidShippingInfo, err.Error())
	case errors.Is(err, domain.ErrArtifactURLRequired):
		writeError(w, http.StatusBadRequest, codeArtifactURLRequired, err.Error())
	case errors.Is(err, domain.ErrCustomerKeyRequired):
		writeError(w, http.StatusBadRequest, codeCustomerKeyRequired, err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, codeVariantNotFound, err.Error())
	case errors.Is(err, domain.ErrCartNotFound):
		writeError(w, http.StatusNotFound, codeCartNotFound, err.Error())
	case errors.Is(err, domain.ErrCartLineNotFound):
		writeError(w, http.StatusNotFound, codeCartLineNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrAttachmentNotFound):
		writeError(w, http.StatusNotFound, codeAttachmentNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyAttached):
		writeError(w, http.StatusConflict, codeAlreadyAttached, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
