package storefront

import (
	"net/http"

	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/middleware"
	"github.com/nattapol/talad/internal/service"
	"github.com/shopspring/decimal"
)

// CartHandler serves the cart view and mutations. Every response carries the
// full recomputed quote; the browser never does price math.
type CartHandler struct {
	checkout service.CheckoutService
}

// NewCartHandler creates the cart handler.
func NewCartHandler(checkout service.CheckoutService) *CartHandler {
	return &CartHandler{checkout: checkout}
}

type cartItemResponse struct {
	ID        string          `json:"id"`
	Quantity  int             `json:"quantity"`
	Product   productResponse `json:"product"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type quoteResponse struct {
	Items      []cartItemResponse `json:"items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Discount   decimal.Decimal    `json:"discount"`
	Total      decimal.Decimal    `json:"total"`
	CouponCode string             `json:"couponCode,omitempty"`
}

func toQuoteResponse(q *service.Quote) quoteResponse {
	items := make([]cartItemResponse, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, cartItemResponse{
			ID:        item.ID,
			Quantity:  item.Quantity,
			Product:   toProductResponse(item.Product),
			UnitPrice: item.Product.EffectiveUnitPrice(),
			LineTotal: item.LineTotal(),
		})
	}
	return quoteResponse{
		Items:      items,
		Subtotal:   q.Subtotal,
		Discount:   q.Discount,
		Total:      q.Total,
		CouponCode: q.CouponCode,
	}
}

// quote recomputes and writes the session quote after a cart change.
func (h *CartHandler) quote(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	q, err := h.checkout.Quote(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

// View loads the cart fresh from the store and returns the quote.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if _, err := h.checkout.LoadCart(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	h.quote(w, r, sess)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Add puts quantity of a product in the cart after the stock pre-check.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, domain.Invalid("cart.add", "Product ID is required"))
		return
	}

	if _, err := h.checkout.AddToCart(r.Context(), sess, req.ProductID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.quote(w, r, sess)
}

// Remove deletes one cart line.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	itemID := r.PathValue("itemId")
	if itemID == "" {
		writeError(w, r, domain.Invalid("cart.remove", "Item ID is required"))
		return
	}

	if _, err := h.checkout.RemoveFromCart(r.Context(), sess, itemID); err != nil {
		writeError(w, r, err)
		return
	}
	h.quote(w, r, sess)
}
