package storefront

import (
	"net/http"

	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/service"
	"github.com/shopspring/decimal"
)

// ProductHandler serves the catalog listing and product detail.
type ProductHandler struct {
	catalog service.CatalogService
}

// NewProductHandler creates the product handler.
func NewProductHandler(catalog service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty"`
	Stock       int              `json:"stock"`
	ImageURL    string           `json:"imageUrl"`

	// Purchasable is the display gate: out-of-stock products render with
	// add-to-cart disabled, they are never hidden from the listing.
	Purchasable bool `json:"purchasable"`
	OnSale      bool `json:"onSale"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		SalePrice:   p.SalePrice,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Purchasable: p.Purchasable(),
		OnSale:      p.OnSale(),
	}
}

// List returns the full catalog.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": out})
}

// Detail returns one product by ID.
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, r, domain.Invalid("products.detail", "Product ID is required"))
		return
	}

	product, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product))
}
