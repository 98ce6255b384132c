package query

import "productcatalog/domain"

// Query is a collaborator query submission.
type Query struct {
	domain.ProductFilters
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultQuery is the first page under the default filters.
func DefaultQuery() Query {
	return Query{ProductFilters: domain.DefaultFilters(), Page: 1, Limit: DefaultLimit}
}

// Result is the derived view for a Query.
type Result struct {
	Items       []domain.Product    `json:"items"`
	Total       int                 `json:"total"`
	TotalPages  int                 `json:"totalPages"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
	HasNext     bool                `json:"hasNext"`
	HasPrevious bool                `json:"hasPrevious"`
	Stats       domain.ProductStats `json:"stats"`
}

// Run filters, sorts and paginates baseline for q. Stats cover the whole
// baseline, not the filtered view. Returned items are deep copies.
func Run(baseline []domain.Product, q Query) Result {
	page, limit := NormalizePage(q.Page, q.Limit)
	matched := Sort(Filter(baseline, q.ProductFilters), q.SortBy, q.SortOrder)
	total := TotalPages(len(matched), limit)

	return Result{
		Items:       domain.CloneProducts(Paginate(matched, page, limit)),
		Total:       len(matched),
		TotalPages:  total,
		Page:        page,
		Limit:       limit,
		HasNext:     page < total,
		HasPrevious: page > 1,
		Stats:       Stats(baseline),
	}
}
