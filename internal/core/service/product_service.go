package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

const (
	productListKeyPrefix = "product_list:"
	productListPattern   = "*product_list*"
	invalidationTimeout  = 2 * time.Second
)

// ProductService owns catalog writes and the cached product listing. cache
// may be nil, in which case listings always hit the repository.
type ProductService struct {
	repo     port.ProductRepository
	cache    port.CacheRepository
	cacheTTL time.Duration
}

func NewProductService(repo port.ProductRepository, cache port.CacheRepository, cacheTTL time.Duration) *ProductService {
	return &ProductService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (s *ProductService) Create(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}

	p, err := s.repo.CreateProduct(ctx, in)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateListings(ctx)
	return p, nil
}

// Replace overwrites every writable field.
func (s *ProductService) Replace(ctx context.Context, id int64, in domain.ProductInput) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	return s.update(ctx, id, domain.ProductPatch{
		Name:        &in.Name,
		Description: &in.Description,
		Price:       &in.Price,
		Stock:       &in.Stock,
		Image:       &in.Image,
	})
}

func (s *ProductService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	if err := patch.Validate(); err != nil {
		return domain.Product{}, err
	}
	if patch.Empty() {
		return s.repo.GetProduct(ctx, id)
	}
	return s.update(ctx, id, patch)
}

func (s *ProductService) update(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	p, err := s.repo.UpdateProduct(ctx, id, patch)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateListings(ctx)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidateListings(ctx)
	return nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *ProductService) Info(ctx context.Context) (domain.ProductInfo, error) {
	return s.repo.ProductInfo(ctx)
}

// List returns one page of products, served from the cache when possible.
// Pages past the last one (other than the first) are ErrInvalidPage.
func (s *ProductService) List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) (domain.ProductPage, error) {
	key := listingKey(filter, page)

	if cached, ok := s.cachedPage(ctx, key); ok {
		return cached, nil
	}

	items, total, err := s.repo.ListProducts(ctx, filter, page)
	if err != nil {
		return domain.ProductPage{}, err
	}
	if len(items) == 0 && page.Number > 1 {
		return domain.ProductPage{}, domain.ErrInvalidPage
	}

	result := domain.ProductPage{Items: items, Total: total, Page: page}
	s.storePage(ctx, key, result)
	return result, nil
}

func (s *ProductService) cachedPage(ctx context.Context, key string) (domain.ProductPage, bool) {
	if s.cache == nil {
		return domain.ProductPage{}, false
	}

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "product list cache read failed", "key", key, "error", err)
		return domain.ProductPage{}, false
	}
	if !ok {
		return domain.ProductPage{}, false
	}

	var page domain.ProductPage
	if err := json.Unmarshal(raw, &page); err != nil {
		slog.WarnContext(ctx, "discarding undecodable product list cache entry", "key", key, "error", err)
		return domain.ProductPage{}, false
	}
	return page, true
}

func (s *ProductService) storePage(ctx context.Context, key string, page domain.ProductPage) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(page)
	if err != nil {
		slog.WarnContext(ctx, "encode product list for cache", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "product list cache write failed", "key", key, "error", err)
	}
}

// invalidateListings drops every cached product listing. Failures are
// logged and never reach the caller; the write has already committed.
func (s *ProductService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidationTimeout)
	defer cancel()

	n, err := s.cache.DeletePattern(ctx, productListPattern)
	if err != nil {
		slog.ErrorContext(ctx, "product list cache invalidation failed", "pattern", productListPattern, "error", err)
		return
	}
	slog.InfoContext(ctx, "cleared product list cache", "keys", n)
}

func listingKey(filter domain.ProductFilter, page domain.PageRequest) string {
	canonical := fmt.Sprintf("%s;page=%d;size=%d", filter.CacheKey(), page.Number, page.Size)
	return productListKeyPrefix + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}
