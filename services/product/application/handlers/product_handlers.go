package handlers

import (
	"context"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
	pkgvalidator "github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/validator"
	appsvcs "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/application/services"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
)

// Catalog is the set of product operations the handlers dispatch to.
// Implemented by *services.ProductService.
type Catalog interface {
	Create(ctx context.Context, in appsvcs.CreateInput) (*appsvcs.ProductResponse, error)
	FindAll(ctx context.Context, page models.Pagination) (*appsvcs.ProductsPage, error)
	FindOne(ctx context.Context, id int) (*appsvcs.ProductResponse, error)
	Update(ctx context.Context, in appsvcs.UpdateInput) (*appsvcs.ProductResponse, error)
	Disable(ctx context.Context, id int) (*appsvcs.ProductResponse, error)
	Remove(ctx context.Context, id int) (*appsvcs.ProductResponse, error)
	ValidateProductsExists(ctx context.Context, ids []int) (*appsvcs.ProductsResponse, error)
}

// ProductHandlers decodes message payloads and forwards them to the Catalog.
// Results and errors are returned unchanged.
type ProductHandlers struct {
	catalog Catalog
	log     logger.Logger
}

// NewProductHandlers returns ProductHandlers backed by the given catalog.
func NewProductHandlers(catalog Catalog, log logger.Logger) *ProductHandlers {
	return &ProductHandlers{catalog: catalog, log: log}
}

func (h *ProductHandlers) CreateProduct(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Creating product...")
	req, err := pkgvalidator.DecodePayload[CreateProductRequest](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.Create(ctx, appsvcs.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Available:   req.Available,
		Price:       *req.Price,
	})
}

func (h *ProductHandlers) FindAllProducts(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Fetching products...")
	req, err := pkgvalidator.DecodePayload[PaginationRequest](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.FindAll(ctx, models.NewPagination(req.Page, req.Limit))
}

func (h *ProductHandlers) FindOneProduct(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Fetching product...")
	req, err := pkgvalidator.DecodePayload[IDPayload](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.FindOne(ctx, req.ID)
}

func (h *ProductHandlers) UpdateProduct(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Updating product...")
	req, err := pkgvalidator.DecodePayload[UpdateProductRequest](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.Update(ctx, appsvcs.UpdateInput{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Available:   req.Available,
		Price:       req.Price,
	})
}

func (h *ProductHandlers) RemoveProduct(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Removing product...")
	req, err := pkgvalidator.DecodePayload[IDPayload](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.Remove(ctx, req.ID)
}

func (h *ProductHandlers) DisableProduct(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Disabling product...")
	req, err := pkgvalidator.DecodePayload[IDPayload](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.Disable(ctx, req.ID)
}

func (h *ProductHandlers) ValidateProductsExists(ctx context.Context, payload []byte) (any, error) {
	h.log.InfoContext(ctx, "Validating products exist...")
	ids, err := pkgvalidator.DecodePayload[[]int](payload)
	if err != nil {
		return nil, err
	}
	return h.catalog.ValidateProductsExists(ctx, *ids)
}
