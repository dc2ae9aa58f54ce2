package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cabindev/support-sub000/internal/app"
	"github.com/cabindev/support-sub000/internal/domain"
)

// OrderCommitter is the slice of the order engine the HTTP layer uses.
type OrderCommitter interface {
	Commit(ctx context.Context, in app.CommitInput) (app.CommitResult, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, []domain.OrderLine, error)
}

// HandleCommitOrder materializes a cart into an order. An Idempotency-Key
// header makes retries return the originally created order.
func HandleCommitOrder(svc OrderCommitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commitOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Commit(r.Context(), app.CommitInput{
			CartID:      req.CartID,
			CustomerKey: r.Header.Get(customerKeyHeader),
			Shipping: domain.ShippingInfo{
				Name:    req.Shipping.Name,
				Phone:   req.Shipping.Phone,
				Address: req.Shipping.Address,
			},
			IdempotencyKey: r.Header.Get(idempotencyHeader),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		status := http.StatusCreated
		if !res.Created {
			status = http.StatusOK
		}
		writeJSON(w, status, toOrderResponse(res.Order, res.Lines))
	}
}

// HandleGetOrder returns the order with its lines.
func HandleGetOrder(svc OrderCommitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, lines, err := svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderResponse(order, lines))
	}
}

// HandleCancelOrder restocks the order's lines and marks it cancelled.
func HandleCancelOrder(svc OrderCommitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Cancel(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
	}
}

type commitOrderRequest struct {
	CartID   string              `json:"cart_id"`
	Shipping shippingInfoRequest `json:"shipping_info"`
}

type shippingInfoRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type orderLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Shipping    shippingInfoRequest `json:"shipping_info"`
	CreatedAt   time.Time           `json:"created_at"`
	Lines       []orderLineResponse `json:"lines,omitempty"`
}

func toOrderResponse(o domain.Order, lines []domain.OrderLine) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Shipping: shippingInfoRequest{
			Name:    o.Shipping.Name,
			Phone:   o.Shipping.Phone,
			Address: o.Shipping.Address,
		},
		CreatedAt: o.CreatedAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}
	return resp
}
