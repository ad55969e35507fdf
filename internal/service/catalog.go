package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nattapol/talad/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CatalogService serves product projections for listing pages and the
// checkout stock pre-check.
type CatalogService interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id string) (*domain.Product, error)
}

// CatalogAPI is the upstream surface this service reads from.
type CatalogAPI interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id string) (*domain.Product, error)
}

// productCacheTTL keeps cached projections short-lived. Stock counts are a
// best-effort display hint; the server re-validates every write.
const productCacheTTL = 30 * time.Second

type catalogService struct {
	api    CatalogAPI
	cache  *redis.Client // nil disables caching
	logger *slog.Logger
}

// NewCatalogService creates a catalog service. Pass a nil redis client to
// read straight through to the upstream API.
func NewCatalogService(api CatalogAPI, cache *redis.Client, logger *slog.Logger) CatalogService {
	return &catalogService{
		api:    api,
		cache:  cache,
		logger: logger,
	}
}

// cachedProduct is the redis representation of a product projection.
type cachedProduct struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice"`
	Stock       int              `json:"stock"`
	ImageURL    string           `json:"imageUrl"`
}

func cacheKey(id string) string {
	return "product:" + id
}

// Products lists the catalog. Listings are always fetched fresh; only
// per-product lookups are cached.
func (s *catalogService) Products(ctx context.Context) ([]domain.Product, error) {
	return s.api.Products(ctx)
}

// Product returns one product projection, served from cache when possible.
// Cache failures are logged and never surfaced; the upstream API is the
// source of truth.
func (s *catalogService) Product(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		if product := s.fromCache(ctx, id); product != nil {
			return product, nil
		}
	}

	product, err := s.api.Product(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.store(ctx, product)
	}
	return product, nil
}

func (s *catalogService) fromCache(ctx context.Context, id string) *domain.Product {
	data, err := s.cache.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("product cache read failed", "product_id", id, "error", err)
		}
		return nil
	}

	var cached cachedProduct
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.Debug("product cache entry malformed", "product_id", id, "error", err)
		return nil
	}

	return &domain.Product{
		ID:          cached.ID,
		Name:        cached.Name,
		Description: cached.Description,
		Price:       cached.Price,
		SalePrice:   cached.SalePrice,
		Stock:       cached.Stock,
		ImageURL:    cached.ImageURL,
	}
}

func (s *catalogService) store(ctx context.Context, product *domain.Product) {
	data, err := json.Marshal(cachedProduct{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		SalePrice:   product.SalePrice,
		Stock:       product.Stock,
		ImageURL:    product.ImageURL,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(product.ID), data, productCacheTTL).Err(); err != nil {
		s.logger.Debug("product cache write failed", "product_id", product.ID, "error", err)
	}
}
