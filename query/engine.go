// Package query filters, sorts, paginates and summarizes product
// collections. Every function is pure and returns a newly allocated slice.
package query

import (
	"cmp"
	"slices"
	"strings"

	"productcatalog/domain"
	"productcatalog/util"
)

// Pagination bounds.
const (
	DefaultLimit = 12
	MaxLimit     = 50
)

// searchText is the haystack free-text queries match against.
func searchText(p domain.Product) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte(' ')
	b.WriteString(p.Description)
	b.WriteByte(' ')
	b.WriteString(p.Brand)
	for _, t := range p.Tags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	return strings.ToLower(b.String())
}

// Matches reports whether p satisfies every predicate in f.
func Matches(p domain.Product, f domain.ProductFilters) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.InStock != nil && p.InStock != *f.InStock {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.SearchQuery)); q != "" {
		if !strings.Contains(searchText(p), q) {
			return false
		}
	}
	return true
}

// Filter keeps the products matching every predicate of f, in order.
func Filter(list []domain.Product, f domain.ProductFilters) []domain.Product {
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if Matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}

func compareAsc(key domain.SortKey) func(a, b domain.Product) int {
	switch key {
	case domain.SortByName:
		return func(a, b domain.Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case domain.SortByPrice:
		return func(a, b domain.Product) int {
			return cmp.Compare(a.Price, b.Price)
		}
	case domain.SortByCreatedAt:
		return func(a, b domain.Product) int {
			return util.ParseTimestamp(a.CreatedAt).Compare(util.ParseTimestamp(b.CreatedAt))
		}
	}
	return nil
}

// Sort orders a copy of list by key. The sort is stable and desc negates
// the ascending comparator, so ties keep their relative order in both
// directions. An empty or unknown key leaves the order unchanged.
func Sort(list []domain.Product, key domain.SortKey, order domain.SortOrder) []domain.Product {
	out := slices.Clone(list)
	if out == nil {
		out = []domain.Product{}
	}
	asc := compareAsc(key)
	if asc == nil {
		return out
	}
	compare := asc
	if order.Normalize() == domain.SortDesc {
		compare = func(a, b domain.Product) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// NormalizePage clamps page to at least 1 and limit into [1, MaxLimit],
// substituting DefaultLimit for non-positive limits.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Paginate returns the 1-based page of list.
func Paginate(list []domain.Product, page, limit int) []domain.Product {
	page, limit = NormalizePage(page, limit)
	// compare pages before multiplying so huge page numbers cannot overflow
	if page-1 >= TotalPages(len(list), limit) {
		return []domain.Product{}
	}
	start := (page - 1) * limit
	end := min(start+limit, len(list))
	return slices.Clone(list[start:end])
}

// TotalPages is ceil(total/limit), or 0 for an empty collection.
func TotalPages(total, limit int) int {
	_, limit = NormalizePage(1, limit)
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Stats summarizes list. Every category is present in the result.
func Stats(list []domain.Product) domain.ProductStats {
	s := domain.ProductStats{
		Total:      len(list),
		Categories: make(map[domain.Category]int, len(domain.Categories)),
	}
	for _, c := range domain.Categories {
		s.Categories[c] = 0
	}
	for _, p := range list {
		if p.InStock {
			s.InStock++
		}
		s.Categories[p.Category]++
	}
	s.OutOfStock = s.Total - s.InStock
	return s
}
