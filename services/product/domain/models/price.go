package models

import (
	"fmt"
	"math"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
)

// Price is a non-negative, finite product price.
type Price float64

// NewPrice constructs a Price or returns an error wrapping
// domain.ErrInvalidProduct when v is negative, NaN or infinite.
func NewPrice(v float64) (Price, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: price must be a finite number", domain.ErrInvalidProduct)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidProduct)
	}
	return Price(v), nil
}

// Float64 returns the underlying value.
func (p Price) Float64() float64 {
	return float64(p)
}
