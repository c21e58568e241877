// Package services contains stateless domain services for the product bounded context.
// Domain services enforce business rules that operate purely on domain types
// and have zero external dependencies beyond stdlib and the domain layer.
package services

import (
	"fmt"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
)

// ValidateProductForCreation re-checks the value-object invariants of an
// unsaved product, which a struct literal can bypass.
func ValidateProductForCreation(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("%w: product cannot be nil", domain.ErrInvalidProduct)
	}
	if p.ID != 0 {
		return fmt.Errorf("%w: id is assigned by the store", domain.ErrInvalidProduct)
	}
	if _, err := models.NewProductName(p.Name.String()); err != nil {
		return err
	}
	if _, err := models.NewPrice(p.Price.Float64()); err != nil {
		return err
	}
	return nil
}

// ValidatePatch checks the fields a patch sets.
func ValidatePatch(patch models.ProductPatch) error {
	if patch.Name != nil {
		if _, err := models.NewProductName(patch.Name.String()); err != nil {
			return err
		}
	}
	if patch.Price != nil {
		if _, err := models.NewPrice(patch.Price.Float64()); err != nil {
			return err
		}
	}
	return nil
}
