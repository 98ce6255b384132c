// Package validation checks product forms field by field and converts
// between the string based form and the typed product draft.
package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"productcatalog/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Field bounds.
const (
	NameMinLength        = 2
	NameMaxLength        = 100
	DescriptionMinLength = 10
	DescriptionMaxLength = 1000
	SKUMinLength         = 3
	SKUMaxLength         = 20
	BrandMinLength       = 2
	BrandMaxLength       = 50
	MinTags              = 1
	MaxTags              = 10
	TagMinLength         = 2
	TagMaxLength         = 20

	UploadPrefix = "/uploads/"
)

var (
	MinPrice = decimal.RequireFromString("0.01")
	MaxPrice = decimal.RequireFromString("999999.99")

	skuPattern        = regexp.MustCompile(`^[A-Z0-9-]+$`)
	imageExtensions   = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}
	imageHostPatterns = []string{"unsplash.com", "images.", "img."}

	validate = validator.New()

	categoryTag = func() string {
		names := make([]string, len(domain.Categories))
		for i, c := range domain.Categories {
			names[i] = string(c)
		}
		return "required,oneof=" + strings.Join(names, " ")
	}()
)

// messages maps a validator tag to the message reported for a field.
type messages map[string]string

// check runs the validator tags against value and translates the first
// failing tag into a field error.
func check(field string, value interface{}, tags string, msgs messages) *domain.ValidationError {
	err := validate.Var(value, tags)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := msgs[verrs[0].Tag()]; ok {
			return &domain.ValidationError{Field: field, Message: msg}
		}
	}
	return &domain.ValidationError{Field: field, Message: "Invalid value"}
}

func fieldError(field, message string) *domain.ValidationError {
	return &domain.ValidationError{Field: field, Message: message}
}

// ValidateName requires 2 to 100 characters after trimming.
func ValidateName(name string) *domain.ValidationError {
	return check("name", strings.TrimSpace(name), "required,min=2,max=100", messages{
		"required": "Product name is required",
		"min":      "Product name must be at least 2 characters long",
		"max":      "Product name cannot exceed 100 characters",
	})
}

// ValidateDescription requires 10 to 1000 characters after trimming.
func ValidateDescription(description string) *domain.ValidationError {
	return check("description", strings.TrimSpace(description), "required,min=10,max=1000", messages{
		"required": "Product description is required",
		"min":      "Description must be at least 10 characters long",
		"max":      "Description cannot exceed 1000 characters",
	})
}

// ParsePrice parses a decimal price string.
func ParsePrice(price string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(price))
}

// ValidatePrice requires a number within [MinPrice, MaxPrice].
func ValidatePrice(price string) *domain.ValidationError {
	d, err := ParsePrice(price)
	if err != nil {
		return fieldError("price", "Price must be a valid number")
	}
	return validatePriceValue(d)
}

func validatePriceValue(d decimal.Decimal) *domain.ValidationError {
	if d.LessThan(MinPrice) {
		return fieldError("price", "Price must be at least $"+MinPrice.String())
	}
	if d.GreaterThan(MaxPrice) {
		return fieldError("price", "Price cannot exceed $999,999.99")
	}
	return nil
}

// ValidateCategory requires a member of the closed category set.
func ValidateCategory(category domain.Category) *domain.ValidationError {
	return check("category", string(category), categoryTag, messages{
		"required": "Product category is required",
		"oneof":    "Invalid product category",
	})
}

func hasImageExtension(s string, suffixOnly bool) bool {
	s = strings.ToLower(s)
	for _, ext := range imageExtensions {
		if suffixOnly && strings.HasSuffix(s, ext) {
			return true
		}
		if !suffixOnly && strings.Contains(s, ext) {
			return true
		}
	}
	return false
}

func isImageHost(host string) bool {
	host = strings.ToLower(host)
	for _, p := range imageHostPatterns {
		if strings.Contains(host, p) {
			return true
		}
	}
	return false
}

// ValidateImageURL accepts local upload paths with an image extension, or
// absolute URLs that carry an image extension or point at a known image host.
func ValidateImageURL(imageURL string) *domain.ValidationError {
	u := strings.TrimSpace(imageURL)
	if u == "" {
		return fieldError("imageUrl", "Product image URL is required")
	}

	if strings.HasPrefix(u, UploadPrefix) {
		if !hasImageExtension(u, true) {
			return fieldError("imageUrl", "Local image must have a valid extension (jpg, jpeg, png, gif, webp, svg)")
		}
		return nil
	}

	if err := validate.Var(u, "url"); err != nil {
		return fieldError("imageUrl", "Please provide a valid image URL")
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return fieldError("imageUrl", "Please provide a valid image URL")
	}
	if !hasImageExtension(u, false) && !isImageHost(parsed.Host) {
		return fieldError("imageUrl", "Please provide a valid image URL (jpg, png, gif, webp, or image service URL)")
	}
	return nil
}

// ValidateSKU is optional; when present it must be 3 to 20 characters of
// uppercase letters, digits and hyphens.
func ValidateSKU(sku string) *domain.ValidationError {
	if sku == "" {
		return nil
	}
	if fe := check("sku", sku, "min=3,max=20", messages{
		"min": "SKU must be at least 3 characters long",
		"max": "SKU cannot exceed 20 characters",
	}); fe != nil {
		return fe
	}
	if !skuPattern.MatchString(sku) {
		return fieldError("sku", "SKU can only contain uppercase letters, numbers, and hyphens")
	}
	return nil
}

// ParseTags splits comma separated input into trimmed, non-empty tokens.
func ParseTags(tags string) []string {
	out := []string{}
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags is the inverse of ParseTags for display.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// ValidateTags checks comma separated tag input.
func ValidateTags(tags string) *domain.ValidationError {
	if strings.TrimSpace(tags) == "" {
		return fieldError("tags", "At least one tag is required")
	}
	parsed := ParseTags(tags)
	if len(parsed) == 0 {
		return fieldError("tags", "At least one valid tag is required")
	}
	return validateTagList(parsed)
}

func validateTagList(tags []string) *domain.ValidationError {
	if fe := check("tags", tags, "min=1,max=10", messages{
		"min": "At least one valid tag is required",
		"max": "Cannot have more than 10 tags",
	}); fe != nil {
		return fe
	}
	return check("tags", tags, "dive,min=2,max=20", messages{
		"min": "Each tag must be at least 2 characters long",
		"max": "Each tag cannot exceed 20 characters",
	})
}

// ValidateBrand is optional; when present it must be 2 to 50 characters
// after trimming.
func ValidateBrand(brand string) *domain.ValidationError {
	if brand == "" {
		return nil
	}
	return check("brand", strings.TrimSpace(brand), "min=2,max=50", messages{
		"min": "Brand must be at least 2 characters long",
		"max": "Brand cannot exceed 50 characters",
	})
}

func collect(errs ...*domain.ValidationError) domain.ValidationResult {
	out := []domain.ValidationError{}
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return domain.NewValidationResult(out)
}

// Validate runs every field rule and reports all failures at once.
func Validate(form domain.ProductForm) domain.ValidationResult {
	return collect(
		ValidateName(form.Name),
		ValidateDescription(form.Description),
		ValidatePrice(form.Price),
		ValidateCategory(form.Category),
		ValidateImageURL(form.ImageURL),
		ValidateSKU(form.SKU),
		ValidateTags(form.Tags),
		ValidateBrand(form.Brand),
	)
}

// ValidatePatch checks only the fields present in a partial update.
func ValidatePatch(p domain.ProductPatch) domain.ValidationResult {
	var errs []*domain.ValidationError
	if p.Name != nil {
		errs = append(errs, ValidateName(*p.Name))
	}
	if p.Description != nil {
		errs = append(errs, ValidateDescription(*p.Description))
	}
	if p.Price != nil {
		errs = append(errs, validatePriceValue(decimal.NewFromFloat(*p.Price)))
	}
	if p.Category != nil {
		errs = append(errs, ValidateCategory(*p.Category))
	}
	if p.ImageURL != nil {
		errs = append(errs, ValidateImageURL(*p.ImageURL))
	}
	if p.Tags != nil {
		errs = append(errs, validateTagList(p.Tags))
	}
	if p.SKU != nil {
		errs = append(errs, ValidateSKU(*p.SKU))
	}
	if p.Brand != nil {
		errs = append(errs, ValidateBrand(*p.Brand))
	}
	return collect(errs...)
}

// FormToDraft converts a form into a typed draft. Call Validate first: an
// unparseable price becomes zero.
func FormToDraft(form domain.ProductForm) domain.ProductDraft {
	var price float64
	if d, err := ParsePrice(form.Price); err == nil {
		price = d.InexactFloat64()
	}
	return domain.ProductDraft{
		Name:        strings.TrimSpace(form.Name),
		Description: strings.TrimSpace(form.Description),
		Price:       price,
		Category:    form.Category,
		ImageURL:    strings.TrimSpace(form.ImageURL),
		InStock:     form.InStock,
		Tags:        ParseTags(form.Tags),
		SKU:         strings.TrimSpace(form.SKU),
		Brand:       strings.TrimSpace(form.Brand),
	}
}

// FormatPrice renders a price in its shortest decimal form.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}

// DraftToForm converts a draft back into its form representation.
func DraftToForm(d domain.ProductDraft) domain.ProductForm {
	return domain.ProductForm{
		Name:        d.Name,
		Description: d.Description,
		Price:       FormatPrice(d.Price),
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		InStock:     d.InStock,
		Tags:        JoinTags(d.Tags),
		SKU:         d.SKU,
		Brand:       d.Brand,
	}
}

// EntityToForm converts a stored product into an editable form.
func EntityToForm(p domain.Product) domain.ProductForm {
	return DraftToForm(p.Draft())
}
