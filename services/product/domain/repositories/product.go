package repositories

import (
	"context"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
)

// QueryOpts contains pagination parameters for list queries.
type QueryOpts struct {
	Limit  int // Maximum number of records to return
	Offset int // Number of records to skip
}

// ProductRepository is the persistence interface for the Product aggregate.
// The domain layer owns this interface; infrastructure implements it.
//
// "Available" reads only see products with Available == true.
type ProductRepository interface {
	// Create persists p and returns it with the store-assigned ID and timestamps.
	Create(ctx context.Context, p *models.Product) (*models.Product, error)

	// FindAvailable returns one page of available products, newest first.
	FindAvailable(ctx context.Context, opts QueryOpts) ([]*models.Product, error)

	// CountAvailable returns the number of available products.
	CountAvailable(ctx context.Context) (int, error)

	// FindAvailableByID returns domain.ErrProductNotFound when no available
	// product has the given id.
	FindAvailableByID(ctx context.Context, id int) (*models.Product, error)

	// FindAvailableByIDs returns the available products among ids, in no
	// particular order. Unknown ids are skipped.
	FindAvailableByIDs(ctx context.Context, ids []int) ([]*models.Product, error)

	// Update applies patch to the product with the given id regardless of its
	// availability. Returns domain.ErrProductNotFound if the row is gone.
	Update(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error)

	// Delete removes the product and returns its last state. Returns
	// domain.ErrProductNotFound if the row is gone.
	Delete(ctx context.Context, id int) (*models.Product, error)
}
