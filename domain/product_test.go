package domain

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestProductFiltersValidate(t *testing.T) {
	tests := []struct {
		name     string
		filters  ProductFilters
		errField string
	}{
		{name: "zero value", filters: ProductFilters{}},
		{name: "defaults", filters: DefaultFilters()},
		{name: "equal bounds", filters: ProductFilters{MinPrice: floatPtr(25), MaxPrice: floatPtr(25)}},
		{name: "inverted bounds", filters: ProductFilters{MinPrice: floatPtr(50), MaxPrice: floatPtr(25)}, errField: "minPrice"},
		{name: "unknown category", filters: ProductFilters{Category: "bogus"}, errField: "category"},
		{name: "unknown sort key", filters: ProductFilters{SortBy: "rating"}, errField: "sortBy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filters.Validate()
			if tt.errField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ipe, ok := err.(*InvalidProductError)
			if !ok {
				t.Fatalf("expected InvalidProductError, got %T", err)
			}
			if ipe.Field != tt.errField {
				t.Fatalf("expected error field %q, got %q", tt.errField, ipe.Field)
			}
		})
	}
}

func TestProductFiltersActiveAndCleared(t *testing.T) {
	f := DefaultFilters()
	if f.HasActive() {
		t.Fatal("sorting alone must not count as an active filter")
	}
	f.SearchQuery = "lamp"
	f.SortBy = SortByPrice
	if !f.HasActive() {
		t.Fatal("search query should be an active filter")
	}
	c := f.Cleared()
	if c.HasActive() || c.SortBy != SortByPrice {
		t.Fatalf("Cleared should drop predicates and keep sort, got %+v", c)
	}
}

func TestSortOrderNormalize(t *testing.T) {
	if SortOrder("ASC").Normalize() != SortAsc {
		t.Fatal("expected asc")
	}
	if SortOrder("").Normalize() != SortDesc || SortOrder("sideways").Normalize() != SortDesc {
		t.Fatal("expected desc default")
	}
}

func TestPatchApplyKeepsIdentity(t *testing.T) {
	p := Product{ID: "p1", Name: "Old", Tags: []string{"aa"}, CreatedAt: "2024-01-01T00:00:00.000Z"}
	name := "New"
	out := ProductPatch{Name: &name, Tags: []string{"bb", "cc"}}.Apply(p)

	if out.ID != "p1" || out.CreatedAt != p.CreatedAt {
		t.Fatalf("identity changed: %+v", out)
	}
	if out.Name != "New" || len(out.Tags) != 2 {
		t.Fatalf("patch not applied: %+v", out)
	}
	if p.Name != "Old" || p.Tags[0] != "aa" {
		t.Fatal("source product was modified")
	}
	if !(ProductPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := 4.5
	p := Product{ID: "p1", Tags: []string{"aa"}, Rating: &r}
	c := p.Clone()
	c.Tags[0] = "zz"
	*c.Rating = 1
	if p.Tags[0] != "aa" || *p.Rating != 4.5 {
		t.Fatal("clone shares memory with source")
	}
}

func TestCategoryLabels(t *testing.T) {
	if len(Categories) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(Categories))
	}
	for _, c := range Categories {
		if !c.Valid() || c.Label() == "" {
			t.Errorf("category %q not labelled", c)
		}
	}
	if CategoryHome.Label() != "Home & Garden" {
		t.Errorf("unexpected label %q", CategoryHome.Label())
	}
}

func TestPriceRangeFilters(t *testing.T) {
	f := PriceRanges[1].Filters(DefaultFilters())
	if *f.MinPrice != 25 || *f.MaxPrice != 50 {
		t.Fatalf("unexpected bounds %+v", f)
	}
	open := PriceRanges[len(PriceRanges)-1].Filters(f)
	if open.MaxPrice != nil || *open.MinPrice != 200 {
		t.Fatalf("open bracket should clear max, got %+v", open)
	}
}

func TestPriceRangeByKey(t *testing.T) {
	r, ok := PriceRangeByKey(" Over-200 ")
	if !ok || r.Min != 200 || r.Max != nil {
		t.Fatalf("got %+v, %v", r, ok)
	}
	if _, ok := PriceRangeByKey("cheap"); ok {
		t.Fatal("unknown key should not resolve")
	}
	seen := map[string]bool{}
	for _, r := range PriceRanges {
		if r.Key == "" || seen[r.Key] {
			t.Errorf("bracket %q has a missing or duplicate key", r.Label)
		}
		seen[r.Key] = true
	}
}
