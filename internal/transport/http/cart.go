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

// CartStore is the slice of the cart component the HTTP layer uses.
type CartStore interface {
	AddLine(ctx context.Context, in app.AddLineInput) (domain.CartLine, error)
	AdjustQuantity(ctx context.Context, in app.AdjustQuantityInput) (domain.CartLine, error)
	RemoveLine(ctx context.Context, in app.RemoveLineInput) error
	GetCart(ctx context.Context, customerKey string) (domain.Cart, []domain.CartLine, error)
}

// HandleAddCartLine reserves stock and adds (or grows) a cart line.
func HandleAddCartLine(svc CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addLineRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		line, err := svc.AddLine(r.Context(), app.AddLineInput{
			CustomerKey: r.Header.Get(customerKeyHeader),
			ProductID:   req.ProductID,
			VariantID:   req.VariantID,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCartLineResponse(line))
	}
}

// HandleAdjustCartLine changes a line's quantity, reserving or releasing
// the difference.
func HandleAdjustCartLine(svc CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustLineRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		line, err := svc.AdjustQuantity(r.Context(), app.AdjustQuantityInput{
			CustomerKey: r.Header.Get(customerKeyHeader),
			LineID:      chi.URLParam(r, "lineID"),
			NewQuantity: req.Quantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toCartLineResponse(line))
	}
}

// HandleRemoveCartLine releases the line's reservation and deletes it.
func HandleRemoveCartLine(svc CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.RemoveLine(r.Context(), app.RemoveLineInput{
			CustomerKey: r.Header.Get(customerKeyHeader),
			LineID:      chi.URLParam(r, "lineID"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetCart returns the customer's cart with its lines.
func HandleGetCart(svc CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, lines, err := svc.GetCart(r.Context(), r.Header.Get(customerKeyHeader))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := cartResponse{
			ID:        cart.ID,
			UpdatedAt: cart.UpdatedAt,
			Lines:     make([]cartLineResponse, 0, len(lines)),
		}
		for _, l := range lines {
			resp.Lines = append(resp.Lines, toCartLineResponse(l))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type addLineRequest struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type adjustLineRequest struct {
	Quantity int `json:"quantity"`
}

type cartLineResponse struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cart_id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	ID        string             `json:"id"`
	UpdatedAt time.Time          `json:"updated_at"`
	Lines     []cartLineResponse `json:"lines"`
}

func toCartLineResponse(l domain.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:        l.ID,
		CartID:    l.CartID,
		ProductID: l.ProductID,
		VariantID: l.VariantID,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Subtotal:  l.Subtotal(),
	}
}
