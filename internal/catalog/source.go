// Package catalog loads the per-session product set from the upstream
// product API and assigns each product a random stock quota.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/AlwanWZ/shophub/internal/domain"
	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
	"github.com/AlwanWZ/shophub/pkg/httpclient"
	"github.com/AlwanWZ/shophub/pkg/slug"
)

const (
	serviceName = "product catalog"

	// DefaultStockCeiling is the highest quota a product can be given.
	DefaultStockCeiling = 20

	maxCatalogBody = 8 << 20
)

// Getter performs a GET against an upstream. *httpclient.CircuitBreakerClient
// satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Source fetches products and rolls their stock.
type Source struct {
	client  Getter
	url     string
	ceiling int
	intN    func(n int) int
	logger  *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithStockCeiling sets the inclusive upper bound for generated quotas.
func WithStockCeiling(n int) Option {
	return func(s *Source) { s.ceiling = n }
}

// WithRand replaces the stock generator. intN must return a value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(s *Source) { s.intN = intN }
}

// NewSource creates a product source reading from url.
func NewSource(client Getter, url string, logger *slog.Logger, opts ...Option) *Source {
	s := &Source{
		client:  client,
		url:     url,
		ceiling: DefaultStockCeiling,
		intN:    rand.IntN,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch loads the upstream product list and returns it as a catalog with a
// fresh quota in [0, ceiling] for every product. Each call rolls new quotas.
func (s *Source) Fetch(ctx context.Context) (*domain.Catalog, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, apperrors.Upstream(serviceName, err)
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var products []domain.Product
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBody)).Decode(&products); err != nil {
		return nil, apperrors.Upstream(serviceName, fmt.Errorf("decode products: %w", err))
	}

	for i := range products {
		products[i].Stock = s.intN(s.ceiling + 1)
	}

	s.logger.DebugContext(ctx, "product catalog fetched",
		slog.Int("products", len(products)),
		slog.Int("stock_ceiling", s.ceiling),
	)

	return domain.NewCatalog(products), nil
}

// Filter returns the products whose title contains query, ignoring case. An
// empty query returns every product.
func Filter(products []domain.Product, query string) []domain.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), query) {
			out = append(out, p)
		}
	}
	return out
}

// InCategory returns the products whose category matches category by slug,
// so "mens-clothing" selects "men's clothing". An empty category returns
// every product.
func InCategory(products []domain.Product, category string) []domain.Product {
	if category == "" {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if slug.Matches(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct category names in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
