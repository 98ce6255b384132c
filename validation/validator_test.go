package validation

import (
	"strings"
	"testing"

	"productcatalog/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validForm() domain.ProductForm {
	return domain.ProductForm{
		Name:        "Wireless Headphones",
		Description: "Over-ear headphones with active noise cancellation.",
		Price:       "199.99",
		Category:    domain.CategoryElectronics,
		ImageURL:    "https://images.unsplash.com/photo-1505740420928",
		InStock:     true,
		Tags:        "audio, wireless",
		SKU:         "WH-1000",
		Brand:       "SoundCo",
	}
}

func TestValidate_ValidForm(t *testing.T) {
	res := Validate(validForm())
	if !res.IsValid {
		t.Fatalf("expected valid form, got errors %+v", res.Errors)
	}
	if res.Errors == nil || len(res.Errors) != 0 {
		t.Fatalf("expected empty non-nil errors, got %v", res.Errors)
	}
}

func TestValidate_ReportsEveryInvalidField(t *testing.T) {
	res := Validate(domain.ProductForm{
		Name:     "",
		Price:    "-5",
		Category: "bogus",
		ImageURL: "not a url",
		Tags:     "",
	})
	if res.IsValid {
		t.Fatal("expected invalid result")
	}

	want := []string{"name", "price", "category", "imageUrl", "tags"}
	for _, f := range want {
		if _, ok := res.Field(f); !ok {
			t.Errorf("missing error for field %s", f)
		}
	}

	// description is empty too; every field carries at most one error
	seen := map[string]int{}
	for _, e := range res.Errors {
		seen[e.Field]++
	}
	for f, n := range seen {
		if n != 1 {
			t.Errorf("field %s reported %d times", f, n)
		}
	}
	if _, ok := res.Field("sku"); ok {
		t.Error("empty sku is optional")
	}
	if _, ok := res.Field("brand"); ok {
		t.Error("empty brand is optional")
	}
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "Product name is required"},
		{"whitespace", "   ", "Product name is required"},
		{"too short", " a ", "Product name must be at least 2 characters long"},
		{"min", "ab", ""},
		{"max", strings.Repeat("x", 100), ""},
		{"too long", strings.Repeat("x", 101), "Product name cannot exceed 100 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertFieldError(t, ValidateName(tc.in), tc.wantErr)
		})
	}
}

func TestValidateDescription(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "Product description is required"},
		{"too short", "short", "Description must be at least 10 characters long"},
		{"min", "0123456789", ""},
		{"too long", strings.Repeat("d", 1001), "Description cannot exceed 1000 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertFieldError(t, ValidateDescription(tc.in), tc.wantErr)
		})
	}
}

func TestValidatePrice(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "Price must be a valid number"},
		{"not a number", "abc", "Price must be a valid number"},
		{"negative", "-5", "Price must be at least $0.01"},
		{"zero", "0", "Price must be at least $0.01"},
		{"min", "0.01", ""},
		{"max", "999999.99", ""},
		{"over max", "1000000", "Price cannot exceed $999,999.99"},
		{"padded", " 12.50 ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertFieldError(t, ValidatePrice(tc.in), tc.wantErr)
		})
	}
}

func TestValidateCategory(t *testing.T) {
	for _, c := range domain.Categories {
		if fe := ValidateCategory(c); fe != nil {
			t.Errorf("category %s rejected: %v", c, fe.Message)
		}
	}
	assertFieldError(t, ValidateCategory(""), "Product category is required")
	assertFieldError(t, ValidateCategory("bogus"), "Invalid product category")
}

func TestValidateImageURL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"empty", "", true},
		{"not a url", "not a url", true},
		{"extension", "https://cdn.example.com/a/b.PNG", false},
		{"unsplash host", "https://unsplash.com/photos/xyz", false},
		{"images host", "https://images.example.com/xyz", false},
		{"img host", "https://img.example.com/xyz", false},
		{"plain host", "https://example.com/page", true},
		{"upload ok", "/uploads/photo.webp", false},
		{"upload bad ext", "/uploads/photo.txt", true},
		{"relative", "photos/a.jpg", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fe := ValidateImageURL(tc.in)
			if tc.wantErr && fe == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			if !tc.wantErr && fe != nil {
				t.Fatalf("unexpected error for %q: %s", tc.in, fe.Message)
			}
			if fe != nil && fe.Field != "imageUrl" {
				t.Fatalf("field = %s", fe.Field)
			}
		})
	}
}

func TestValidateSKU(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"absent", "", ""},
		{"ok", "AB-123", ""},
		{"too short", "AB", "SKU must be at least 3 characters long"},
		{"too long", strings.Repeat("A", 21), "SKU cannot exceed 20 characters"},
		{"lowercase", "ab-123", "SKU can only contain uppercase letters, numbers, and hyphens"},
		{"space", "AB 123", "SKU can only contain uppercase letters, numbers, and hyphens"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertFieldError(t, ValidateSKU(tc.in), tc.wantErr)
		})
	}
}

func TestValidateTags(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "At least one tag is required"},
		{"only commas", " , ,", "At least one valid tag is required"},
		{"ok", "audio, wireless", ""},
		{"short tag", "audio, x", "Each tag must be at least 2 characters long"},
		{"long tag", "audio, " + strings.Repeat("t", 21), "Each tag cannot exceed 20 characters"},
		{"ten", strings.Repeat("ab,", 9) + "ab", ""},
		{"eleven", strings.Repeat("ab,", 10) + "ab", "Cannot have more than 10 tags"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertFieldError(t, ValidateTags(tc.in), tc.wantErr)
		})
	}
}

func TestValidateBrand(t *testing.T) {
	assertFieldError(t, ValidateBrand(""), "")
	assertFieldError(t, ValidateBrand("Co"), "")
	assertFieldError(t, ValidateBrand(" a "), "Brand must be at least 2 characters long")
	assertFieldError(t, ValidateBrand(strings.Repeat("b", 51)), "Brand cannot exceed 50 characters")
}

func TestValidatePatch_OnlyPresentFields(t *testing.T) {
	if res := ValidatePatch(domain.ProductPatch{}); !res.IsValid {
		t.Fatalf("empty patch should be valid: %+v", res.Errors)
	}

	name := "x"
	price := 0.0
	res := ValidatePatch(domain.ProductPatch{Name: &name, Price: &price})
	if res.IsValid || len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %+v", res.Errors)
	}

	ok := "Valid Name"
	if res := ValidatePatch(domain.ProductPatch{Name: &ok, Tags: []string{"fine"}}); !res.IsValid {
		t.Fatalf("unexpected errors %+v", res.Errors)
	}
	if res := ValidatePatch(domain.ProductPatch{Tags: []string{}}); res.IsValid {
		t.Fatal("explicit empty tags should be rejected")
	}
}

func TestFormToDraft(t *testing.T) {
	f := validForm()
	f.Name = "  Wireless Headphones  "
	f.Tags = " audio ,, wireless , "
	f.Price = "019.90"

	d := FormToDraft(f)
	if d.Name != "Wireless Headphones" {
		t.Errorf("name not trimmed: %q", d.Name)
	}
	if d.Price != 19.9 {
		t.Errorf("price = %v", d.Price)
	}
	if len(d.Tags) != 2 || d.Tags[0] != "audio" || d.Tags[1] != "wireless" {
		t.Errorf("tags = %v", d.Tags)
	}
}

func TestEntityToForm(t *testing.T) {
	p := FormToDraft(validForm()).Product("product_1", "2024-01-01T00:00:00.000Z", "2024-01-01T00:00:00.000Z")
	f := EntityToForm(p)
	if f.Price != "199.99" {
		t.Errorf("price = %q", f.Price)
	}
	if f.Tags != "audio, wireless" {
		t.Errorf("tags = %q", f.Tags)
	}
}

func TestFormRoundTrip_Property(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	word := gen.RegexMatch(`^[a-z]{2,12}$`)
	priceCents := gen.Int64Range(1, 99999999)
	category := gen.IntRange(0, len(domain.Categories)-1)

	properties.Property("entityToForm(formToDraft(f)) is f for canonical valid forms", prop.ForAll(
		func(name string, tag string, cents int64, ci int, inStock bool) bool {
			d := domain.ProductDraft{
				Name:        "Item " + name,
				Description: "Description for " + name,
				Price:       float64(cents) / 100,
				Category:    domain.Categories[ci],
				ImageURL:    "https://img.example.com/" + name + ".png",
				InStock:     inStock,
				Tags:        []string{tag, tag + "x"},
			}
			f := DraftToForm(d)
			if !Validate(f).IsValid {
				return false
			}
			back := DraftToForm(FormToDraft(f))
			return back == f
		},
		word, word, priceCents, category, gen.Bool(),
	))

	properties.TestingRun(t)
}

func assertFieldError(t *testing.T, fe *domain.ValidationError, want string) {
	t.Helper()
	if want == "" {
		if fe != nil {
			t.Fatalf("unexpected error: %s", fe.Message)
		}
		return
	}
	if fe == nil {
		t.Fatalf("expected error %q, got none", want)
	}
	if fe.Message != want {
		t.Fatalf("message = %q, want %q", fe.Message, want)
	}
}
