package models

import "time"

// Product is the core aggregate for this bounded context. ID, CreatedAt and
// UpdatedAt are assigned by the store.
type Product struct {
	ID          int
	Name        ProductName
	Description *string
	Price       Price
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct constructs an unsaved Product. A nil available defaults to true.
func NewProduct(name ProductName, description *string, price Price, available *bool) *Product {
	now := time.Now().UTC()
	p := &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if available != nil {
		p.Available = *available
	}
	return p
}

// ProductPatch is a partial update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *ProductName
	Description *string
	Price       *Price
	Available   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Available == nil
}

// Apply writes the set fields onto product and bumps UpdatedAt.
func (p ProductPatch) Apply(product *Product, now time.Time) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		product.Description = &d
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Available != nil {
		product.Available = *p.Available
	}
	product.UpdatedAt = now
}

// DisablePatch is the patch applied by the disable operation.
func DisablePatch() ProductPatch {
	off := false
	return ProductPatch{Available: &off}
}
