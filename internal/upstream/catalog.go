package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nattapol/talad/internal/domain"
	"github.com/shopspring/decimal"
)

type productDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice"`
	Stock       int              `json:"stock"`
	ImageURL    string           `json:"imageUrl"`
}

func (d productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		SalePrice:   d.SalePrice,
		Stock:       d.Stock,
		ImageURL:    d.ImageURL,
	}
}

type productListResponse struct {
	Products []productDTO `json:"products"`
}

// Products returns the full catalog listing.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	const op = "upstream.products"

	var resp productListResponse
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/products", "", nil, &resp); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(resp.Products))
	for _, dto := range resp.Products {
		products = append(products, dto.toDomain())
	}
	return products, nil
}

// Product fetches one product projection by ID. Fresh stock counts come from
// here; the cart payload does not carry stock.
func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	const op = "upstream.product"

	var dto productDTO
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/products/"+url.PathEscape(id), "", nil, &dto); err != nil {
		return nil, err
	}

	product := dto.toDomain()
	return &product, nil
}
