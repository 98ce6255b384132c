// Package domain defines core catalog types shared by every layer.
package domain

import "strings"

// Category is one of the closed set of catalog category tags.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryHome        Category = "home"
	CategoryBooks       Category = "books"
	CategorySports      Category = "sports"
	CategoryBeauty      Category = "beauty"
	CategoryToys        Category = "toys"
	CategoryAutomotive  Category = "automotive"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryHome,
	CategoryBooks,
	CategorySports,
	CategoryBeauty,
	CategoryToys,
	CategoryAutomotive,
}

var categoryLabels = map[Category]string{
	CategoryElectronics: "Electronics",
	CategoryClothing:    "Clothing",
	CategoryHome:        "Home & Garden",
	CategoryBooks:       "Books",
	CategorySports:      "Sports & Outdoors",
	CategoryBeauty:      "Beauty & Personal Care",
	CategoryToys:        "Toys & Games",
	CategoryAutomotive:  "Automotive",
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Product represents a catalog product
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    Category `json:"category"`
	ImageURL    string   `json:"imageUrl"`
	InStock     bool     `json:"inStock"`
	Tags        []string `json:"tags"`
	SKU         string   `json:"sku,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"reviewCount,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share the tags slice or the
// optional pointers with the baseline collection.
func (p Product) Clone() Product {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	if p.Rating != nil {
		r := *p.Rating
		out.Rating = &r
	}
	if p.ReviewCount != nil {
		n := *p.ReviewCount
		out.ReviewCount = &n
	}
	return out
}

// Draft strips the store-assigned fields.
func (p Product) Draft() ProductDraft {
	c := p.Clone()
	return ProductDraft{
		Name:        c.Name,
		Description: c.Description,
		Price:       c.Price,
		Category:    c.Category,
		ImageURL:    c.ImageURL,
		InStock:     c.InStock,
		Tags:        c.Tags,
		SKU:         c.SKU,
		Brand:       c.Brand,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
	}
}

// CloneProducts deep copies a collection.
func CloneProducts(in []Product) []Product {
	if in == nil {
		return nil
	}
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// ProductDraft is a product before the controller assigns id and timestamps.
type ProductDraft struct {
	Name        string
	Description string
	Price       float64
	Category    Category
	ImageURL    string
	InStock     bool
	Tags        []string
	SKU         string
	Brand       string
	Rating      *float64
	ReviewCount *int
}

// Product materializes the draft with the given identity and timestamps.
func (d ProductDraft) Product(id, createdAt, updatedAt string) Product {
	p := Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		InStock:     d.InStock,
		Tags:        d.Tags,
		SKU:         d.SKU,
		Brand:       d.Brand,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	return p.Clone()
}

// ProductPatch is a partial update. ID and CreatedAt are deliberately not
// representable.
type ProductPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Category    *Category `json:"category,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	InStock     *bool     `json:"inStock,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	SKU         *string   `json:"sku,omitempty"`
	Brand       *string   `json:"brand,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	ReviewCount *int      `json:"reviewCount,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.Category == nil && p.ImageURL == nil && p.InStock == nil &&
		p.Tags == nil && p.SKU == nil && p.Brand == nil &&
		p.Rating == nil && p.ReviewCount == nil
}

// Apply merges the patch onto a copy of to.
func (p ProductPatch) Apply(to Product) Product {
	out := to.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Price != nil {
		out.Price = *p.Price
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.ImageURL != nil {
		out.ImageURL = *p.ImageURL
	}
	if p.InStock != nil {
		out.InStock = *p.InStock
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	if p.SKU != nil {
		out.SKU = *p.SKU
	}
	if p.Brand != nil {
		out.Brand = *p.Brand
	}
	if p.Rating != nil {
		r := *p.Rating
		out.Rating = &r
	}
	if p.ReviewCount != nil {
		n := *p.ReviewCount
		out.ReviewCount = &n
	}
	return out
}

// PatchFromDraft builds a patch that overwrites every editable field.
func PatchFromDraft(d ProductDraft) ProductPatch {
	return ProductPatch{
		Name:        &d.Name,
		Description: &d.Description,
		Price:       &d.Price,
		Category:    &d.Category,
		ImageURL:    &d.ImageURL,
		InStock:     &d.InStock,
		Tags:        append([]string{}, d.Tags...),
		SKU:         &d.SKU,
		Brand:       &d.Brand,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
	}
}

// ProductForm is the string based representation edited by collaborators.
type ProductForm struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Category    Category `json:"category"`
	ImageURL    string   `json:"imageUrl"`
	InStock     bool     `json:"inStock"`
	Tags        string   `json:"tags"`
	SKU         string   `json:"sku,omitempty"`
	Brand       string   `json:"brand,omitempty"`
}

// SortKey selects the field products are ordered by.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByPrice     SortKey = "price"
	SortByCreatedAt SortKey = "createdAt"
)

// Valid reports whether k is empty or one of the supported keys.
func (k SortKey) Valid() bool {
	switch k {
	case "", SortByName, SortByPrice, SortByCreatedAt:
		return true
	}
	return false
}

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Normalize maps anything but "asc" to the default "desc".
func (o SortOrder) Normalize() SortOrder {
	if strings.EqualFold(string(o), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// ProductFilters describes a query over the baseline collection
type ProductFilters struct {
	Category    Category  `json:"category,omitempty"`
	MinPrice    *float64  `json:"minPrice,omitempty"`
	MaxPrice    *float64  `json:"maxPrice,omitempty"`
	InStock     *bool     `json:"inStock,omitempty"`
	SearchQuery string    `json:"searchQuery,omitempty"`
	SortBy      SortKey   `json:"sortBy,omitempty"`
	SortOrder   SortOrder `json:"sortOrder,omitempty"`
}

// DefaultFilters is the filter state a fresh session starts with.
func DefaultFilters() ProductFilters {
	return ProductFilters{SortBy: SortByCreatedAt, SortOrder: SortDesc}
}

// HasActive reports whether any narrowing predicate is set. Sorting does not count.
func (f ProductFilters) HasActive() bool {
	return f.SearchQuery != "" || f.Category != "" || f.MinPrice != nil ||
		f.MaxPrice != nil || f.InStock != nil
}

// Cleared drops every predicate but keeps the current sort.
func (f ProductFilters) Cleared() ProductFilters {
	return ProductFilters{SortBy: f.SortBy, SortOrder: f.SortOrder}
}

// Validate rejects inconsistent filters.
func (f ProductFilters) Validate() error {
	if f.Category != "" && !f.Category.Valid() {
		return NewInvalidProductError("category", "unknown category", f.Category)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return NewInvalidProductError("minPrice", "must not exceed maxPrice", *f.MinPrice)
	}
	if !f.SortBy.Valid() {
		return NewInvalidProductError("sortBy", "unsupported sort key", f.SortBy)
	}
	return nil
}

// ProductStats summarizes the unfiltered baseline.
type ProductStats struct {
	Total      int              `json:"total"`
	InStock    int              `json:"inStock"`
	OutOfStock int              `json:"outOfStock"`
	Categories map[Category]int `json:"categories"`
}

// PriceRange is a labelled price bracket offered to collaborators.
type PriceRange struct {
	Key   string
	Label string
	Min   float64
	Max   *float64
}

func bound(v float64) *float64 { return &v }

// PriceRanges are the preset price brackets.
var PriceRanges = []PriceRange{
	{Key: "under-25", Label: "Under $25", Min: 0, Max: bound(25)},
	{Key: "25-50", Label: "$25 - $50", Min: 25, Max: bound(50)},
	{Key: "50-100", Label: "$50 - $100", Min: 50, Max: bound(100)},
	{Key: "100-200", Label: "$100 - $200", Min: 100, Max: bound(200)},
	{Key: "over-200", Label: "Over $200", Min: 200},
}

// PriceRangeByKey looks up a preset bracket by its key.
func PriceRangeByKey(key string) (PriceRange, bool) {
	for _, r := range PriceRanges {
		if strings.EqualFold(r.Key, strings.TrimSpace(key)) {
			return r, true
		}
	}
	return PriceRange{}, false
}

// Filters returns filters narrowed to the bracket.
func (r PriceRange) Filters(base ProductFilters) ProductFilters {
	min := r.Min
	base.MinPrice = &min
	base.MaxPrice = nil
	if r.Max != nil {
		max := *r.Max
		base.MaxPrice = &max
	}
	return base
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult aggregates every failing field of a form.
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  []ValidationError `json:"errors"`
}

// NewValidationResult derives IsValid from errs.
func NewValidationResult(errs []ValidationError) ValidationResult {
	if errs == nil {
		errs = []ValidationError{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Field returns the error reported for field, if any.
func (r ValidationResult) Field(field string) (ValidationError, bool) {
	for _, e := range r.Errors {
		if e.Field == field {
			return e, true
		}
	}
	return ValidationError{}, false
}
