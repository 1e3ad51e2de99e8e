package application

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/shopflow/internal/catalog/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/latency"
)

const (
	featuredLimit      = 8
	featuredMinRating  = 4.5
	relatedLimit       = 4
	allCategoriesScope = "all"
)

type Service struct {
	catalog Catalog
	delay   latency.Simulator
}

func NewService(catalog Catalog, delay latency.Simulator) *Service {
	return &Service{catalog: catalog, delay: delay}
}

func (s *Service) All(ctx context.Context) ([]domain.Product, error) {
	if err := s.delay.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}
	return s.catalog.Products(), nil
}

func (s *Service) ByID(ctx context.Context, id int) (domain.Product, error) {
	if err := s.delay.Wait(ctx, 200*time.Millisecond); err != nil {
		return domain.Product{}, err
	}
	p, ok := s.catalog.Product(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: id %d", domain.ErrProductNotFound, id)
	}
	return p, nil
}

// ByCategory resolves a URL slug; "all" returns the whole catalog.
func (s *Service) ByCategory(ctx context.Context, slug string) ([]domain.Product, error) {
	if err := s.delay.Wait(ctx, 400*time.Millisecond); err != nil {
		return nil, err
	}
	return s.inScope(slug), nil
}

func (s *Service) inScope(slug string) []domain.Product {
	all := s.catalog.Products()
	if strings.EqualFold(slug, allCategoriesScope) {
		return all
	}
	category := domain.CategoryFromSlug(slug)
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if domain.InCategory(p, category) {
			out = append(out, p)
		}
	}
	return out
}

// Featured lists flagged or highly rated products, capped at eight.
func (s *Service) Featured(ctx context.Context) ([]domain.Product, error) {
	if err := s.delay.Wait(ctx, 350*time.Millisecond); err != nil {
		return nil, err
	}
	var out []domain.Product
	for _, p := range s.catalog.Products() {
		if len(out) == featuredLimit {
			break
		}
		if p.Featured || p.Rating >= featuredMinRating {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Related(ctx context.Context, category string, excludeID int) ([]domain.Product, error) {
	if err := s.delay.Wait(ctx, 250*time.Millisecond); err != nil {
		return nil, err
	}
	var out []domain.Product
	for _, p := range s.catalog.Products() {
		if len(out) == relatedLimit {
			break
		}
		if p.ID != excludeID && domain.InCategory(p, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if err := s.delay.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}
	return domain.Search(s.catalog.Products(), query), nil
}

// Categories returns the distinct category labels in sorted order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	if err := s.delay.Wait(ctx, 200*time.Millisecond); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range s.catalog.Products() {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	slices.Sort(out)
	return out, nil
}

// Scope selects the product set a browse starts from: a category slug or a
// search query, never both.
type Scope struct {
	Category string
	Query    string
}

type BrowseResult struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

// Browse narrows a scope with the filter/sort pipeline.
func (s *Service) Browse(ctx context.Context, scope Scope, c domain.Criteria) (BrowseResult, error) {
	if err := c.Validate(); err != nil {
		return BrowseResult{}, err
	}
	if scope.Category != "" && scope.Query != "" {
		return BrowseResult{}, fmt.Errorf("%w: browse by category or query, not both", apperr.ErrInvalid)
	}

	var (
		base []domain.Product
		err  error
	)
	switch {
	case scope.Query != "":
		base, err = s.Search(ctx, scope.Query)
	case scope.Category != "":
		base, err = s.ByCategory(ctx, scope.Category)
	default:
		base, err = s.All(ctx)
	}
	if err != nil {
		return BrowseResult{}, err
	}
	out := domain.Apply(base, c)
	return BrowseResult{Products: out, Total: len(out)}, nil
}
