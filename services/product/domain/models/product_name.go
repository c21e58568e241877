package models

import (
	"fmt"
	"strings"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
)

// ProductName is a value object representing a non-blank product name.
type ProductName string

// NewProductName constructs a ProductName or returns an error wrapping
// domain.ErrInvalidProduct when s is empty or only whitespace.
func NewProductName(s string) (ProductName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: name must not be empty", domain.ErrInvalidProduct)
	}
	return ProductName(s), nil
}

// String returns the underlying string value.
func (n ProductName) String() string {
	return string(n)
}
