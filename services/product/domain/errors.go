package domain

import "errors"

// Sentinel errors for the product domain. Use errors.Is() to check these.
var (
	// ErrProductNotFound indicates no available product matches the request.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidProduct indicates a product field violates domain constraints.
	ErrInvalidProduct = errors.New("invalid product")
)
