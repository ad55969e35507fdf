package upstream

import (
	"context"
	"net/http"

	"github.com/nattapol/talad/internal/domain"
	"github.com/shopspring/decimal"
)

// cartProductDTO is the product projection embedded in cart items. It is a
// subset of the catalog projection: no stock, no description.
type cartProductDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice"`
	ImageURL  string           `json:"imageUrl"`
}

type cartItemDTO struct {
	ID       string         `json:"id"`
	Quantity int            `json:"quantity"`
	Product  cartProductDTO `json:"product"`
}

type cartResponse struct {
	Items []cartItemDTO `json:"items"`
}

// Cart loads the authenticated user's cart with product projections.
func (c *Client) Cart(ctx context.Context, token string) ([]domain.CartItem, error) {
	const op = "upstream.cart"

	var resp cartResponse
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/cart", token, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, 0, len(resp.Items))
	for _, dto := range resp.Items {
		items = append(items, domain.CartItem{
			ID:       dto.ID,
			Quantity: dto.Quantity,
			Product: domain.Product{
				ID:        dto.Product.ID,
				Name:      dto.Product.Name,
				Price:     dto.Product.Price,
				SalePrice: dto.Product.SalePrice,
				ImageURL:  dto.Product.ImageURL,
			},
		})
	}
	return items, nil
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddCartItem adds quantity of a product to the server cart. The local stock
// pre-check happens in the checkout service before this is called; the server
// remains the final authority and may still reject.
func (c *Client) AddCartItem(ctx context.Context, token, productID string, quantity int) error {
	const op = "upstream.cart_add"
	return c.doJSON(ctx, op, http.MethodPost, "/api/cart", token, addCartItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

type removeCartItemRequest struct {
	ItemID string `json:"itemId"`
}

// RemoveCartItem deletes one cart line by its item ID.
func (c *Client) RemoveCartItem(ctx context.Context, token, itemID string) error {
	const op = "upstream.cart_remove"
	return c.doJSON(ctx, op, http.MethodDelete, "/api/cart", token, removeCartItemRequest{ItemID: itemID}, nil)
}
