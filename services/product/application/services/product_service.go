package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
	pkgvalidator "github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/validator"
	productdomain "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/repositories"
	domainsvcs "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/services"
)

// Reply messages.
const (
	MsgProductCreated  = "Product created!"
	MsgProductsFetched = "Products fetched!"
	MsgProductFetched  = "Product fetched!"
	MsgProductUpdated  = "Product updated!"
	MsgProductDeleted  = "Product deleted!"
	MsgProductDisabled = "Product disabled!"
	MsgProductsExist   = "Products Existing!"

	MsgNoProductsFound = "No products found for the given criteria."
	MsgNoProductFound  = "No product found for the given criteria."
	MsgSomeMissing     = "Some products do not exist or are not available."
)

// CreateInput is the data for a new product. A nil Available defaults to true.
type CreateInput struct {
	Name        string
	Description *string
	Available   *bool
	Price       float64
}

// UpdateInput identifies a product and the fields to change; nil fields are kept.
type UpdateInput struct {
	ID          int
	Name        *string
	Description *string
	Available   *bool
	Price       *float64
}

// ProductService is the catalog: every read sees only available products,
// and update, disable and remove require the product to be available first.
// Event publishing is handled by the repository layer (outbox pattern).
//
// Every failure is returned as an *errrpc.Error.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService returns a ProductService wired with the given repository.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// Create persists a new product.
func (s *ProductService) Create(ctx context.Context, in CreateInput) (*ProductResponse, error) {
	name, err := models.NewProductName(in.Name)
	if err != nil {
		return nil, invalid(err)
	}
	price, err := models.NewPrice(in.Price)
	if err != nil {
		return nil, invalid(err)
	}

	product := models.NewProduct(name, in.Description, price, in.Available)
	if err := domainsvcs.ValidateProductForCreation(product); err != nil {
		return nil, invalid(err)
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, fail(err)
	}
	return productResponse(MsgProductCreated, created), nil
}

// FindAll returns one page of available products, newest first. The page and
// the total count are fetched concurrently. An empty page is a NotFound.
func (s *ProductService) FindAll(ctx context.Context, page models.Pagination) (*ProductsPage, error) {
	var (
		products []*models.Product
		total    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.FindAvailable(gctx, repositories.QueryOpts{Limit: page.Limit, Offset: page.Offset()})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountAvailable(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fail(err)
	}

	if len(products) == 0 {
		return nil, errrpc.NotFound(MsgNoProductsFound)
	}

	meta := page.Meta(total)
	return &ProductsPage{
		OK:         true,
		Message:    MsgProductsFetched,
		Data:       toDTOs(products),
		Count:      len(products),
		TotalCount: meta.TotalCount,
		TotalPages: meta.TotalPages,
		NextPage:   meta.NextPage,
		PrevPage:   meta.PrevPage,
	}, nil
}

// FindOne returns the available product with the given id.
func (s *ProductService) FindOne(ctx context.Context, id int) (*ProductResponse, error) {
	product, err := s.findAvailable(ctx, id)
	if err != nil {
		return nil, err
	}
	return productResponse(MsgProductFetched, product), nil
}

// Update applies a partial update to an available product.
func (s *ProductService) Update(ctx context.Context, in UpdateInput) (*ProductResponse, error) {
	patch, err := toPatch(in)
	if err != nil {
		return nil, invalid(err)
	}
	if _, err := s.findAvailable(ctx, in.ID); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, in.ID, patch)
	if err != nil {
		return nil, mutationFailed(err)
	}
	return productResponse(MsgProductUpdated, updated), nil
}

// Disable marks an available product as unavailable. No other field changes.
func (s *ProductService) Disable(ctx context.Context, id int) (*ProductResponse, error) {
	if _, err := s.findAvailable(ctx, id); err != nil {
		return nil, err
	}

	disabled, err := s.repo.Update(ctx, id, models.DisablePatch())
	if err != nil {
		return nil, mutationFailed(err)
	}
	return productResponse(MsgProductDisabled, disabled), nil
}

// Remove permanently deletes an available product and returns its last state.
func (s *ProductService) Remove(ctx context.Context, id int) (*ProductResponse, error) {
	if _, err := s.findAvailable(ctx, id); err != nil {
		return nil, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, mutationFailed(err)
	}
	return productResponse(MsgProductDeleted, deleted), nil
}

// ValidateProductsExists succeeds only if every distinct id names an
// available product. Otherwise the NotFound lists each missing id, in request
// order.
func (s *ProductService) ValidateProductsExists(ctx context.Context, ids []int) (*ProductsResponse, error) {
	unique := dedupe(ids)

	products, err := s.repo.FindAvailableByIDs(ctx, unique)
	if err != nil {
		return nil, fail(err)
	}

	found := make(map[int]bool, len(products))
	for _, p := range products {
		found[p.ID] = true
	}
	var missing []string
	for _, id := range unique {
		if !found[id] {
			missing = append(missing, fmt.Sprintf("The product with id %d doesn't exist or is not available.", id))
		}
	}
	if len(missing) > 0 {
		return nil, errrpc.NotFound(MsgSomeMissing, missing...)
	}

	return &ProductsResponse{OK: true, Message: MsgProductsExist, Data: toDTOs(products)}, nil
}

func (s *ProductService) findAvailable(ctx context.Context, id int) (*models.Product, error) {
	product, err := s.repo.FindAvailableByID(ctx, id)
	if errors.Is(err, productdomain.ErrProductNotFound) {
		return nil, errrpc.NotFound(MsgNoProductFound)
	}
	if err != nil {
		return nil, fail(err)
	}
	return product, nil
}

func toPatch(in UpdateInput) (models.ProductPatch, error) {
	patch := models.ProductPatch{Description: in.Description, Available: in.Available}
	if in.Name != nil {
		name, err := models.NewProductName(*in.Name)
		if err != nil {
			return patch, err
		}
		patch.Name = &name
	}
	if in.Price != nil {
		price, err := models.NewPrice(*in.Price)
		if err != nil {
			return patch, err
		}
		patch.Price = &price
	}
	return patch, domainsvcs.ValidatePatch(patch)
}

func dedupe(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// fail normalizes a store error. The store's message is kept as is.
func fail(err error) error {
	return errrpc.Normalize(err)
}

// mutationFailed maps a row that vanished between the existence check and
// the write onto the same NotFound the check would have produced.
func mutationFailed(err error) error {
	if errors.Is(err, productdomain.ErrProductNotFound) {
		return errrpc.NotFound(MsgNoProductFound)
	}
	return fail(err)
}

func invalid(err error) error {
	return errrpc.BadRequest(pkgvalidator.ValidationFailedMessage, err.Error())
}
