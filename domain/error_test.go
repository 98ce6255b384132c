package domain

import (
	"errors"
	"testing"
)

func TestProductNotFoundError(t *testing.T) {
	t.Run("Error message formatting", func(t *testing.T) {
		err := NewProductNotFoundError("prod-123")
		expected := "product not found: id=prod-123"
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("errors.Is detection", func(t *testing.T) {
		err := NewProductNotFoundError("prod-123")
		if !errors.Is(err, &ProductNotFoundError{}) {
			t.Error("errors.Is should detect ProductNotFoundError")
		}
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		err := errors.Join(errors.New("update"), NewProductNotFoundError("prod-456"))
		var pnf *ProductNotFoundError
		if !errors.As(err, &pnf) {
			t.Fatal("errors.As should convert to ProductNotFoundError")
		}
		if pnf.ProductID != "prod-456" {
			t.Errorf("expected ProductID prod-456, got %s", pnf.ProductID)
		}
	})
}

func TestValidationFailedError(t *testing.T) {
	err := NewValidationFailedError([]ValidationError{
		{Field: "name", Message: "Product name is required"},
		{Field: "price", Message: "Price must be a valid number"},
	})
	expected := "validation failed: fields=name,price"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !IsValidationFailedError(err) {
		t.Error("IsValidationFailedError should return true")
	}
	var vfe *ValidationFailedError
	if !errors.As(err, &vfe) || len(vfe.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", vfe)
	}
}

func TestSourceUnavailableError(t *testing.T) {
	cause := errors.New("static dataset empty")
	err := NewSourceUnavailableError(cause)
	if !IsSourceUnavailableError(err) {
		t.Error("IsSourceUnavailableError should return true")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if NewSourceUnavailableError(nil).Error() != "no product source available" {
		t.Error("unexpected message without cause")
	}
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewPersistenceError("ecommerce_products", cause)
	if err.Error() != "persist ecommerce_products: quota exceeded" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsPersistenceError(err) || !errors.Is(err, cause) {
		t.Error("persistence error should match type and cause")
	}
}

func TestErrorTypeDiscrimination(t *testing.T) {
	pnfErr := NewProductNotFoundError("prod-1")
	ipeErr := NewInvalidProductError("minPrice", "must not exceed maxPrice", 10)
	vfeErr := NewValidationFailedError(nil)

	if IsInvalidProductError(pnfErr) || IsValidationFailedError(pnfErr) {
		t.Error("ProductNotFoundError confused with another type")
	}
	if IsProductNotFoundError(ipeErr) || IsValidationFailedError(ipeErr) {
		t.Error("InvalidProductError confused with another type")
	}
	if IsProductNotFoundError(vfeErr) || IsInvalidProductError(vfeErr) {
		t.Error("ValidationFailedError confused with another type")
	}
}
