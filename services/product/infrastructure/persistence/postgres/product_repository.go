package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/database"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	productdomain "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
	domainevents "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/repositories"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/infrastructure/persistence/postgres/db"
)

// ProductRepository implements repositories.ProductRepository against PostgreSQL.
type ProductRepository struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository returns a ProductRepository backed by the given
// connection pool. When bus is non-nil every write publishes a product event
// in the same transaction.
func NewProductRepository(database *database.Database, bus *events.EventBus) *ProductRepository {
	return &ProductRepository{db: database, bus: bus}
}

// Create inserts p and publishes product.created within the same transaction.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	var created *models.Product
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		row, err := db.New(tx).InsertProduct(ctx, db.InsertProductParams{
			Name:        p.Name.String(),
			Description: nullString(p.Description),
			Price:       p.Price.Float64(),
			Available:   p.Available,
		})
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		created = rowToProduct(row)
		return r.publish(tx, domainevents.TopicProductCreated, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindAvailable returns one page of available products, newest first.
func (r *ProductRepository) FindAvailable(ctx context.Context, opts repositories.QueryOpts) ([]*models.Product, error) {
	rows, err := db.New(r.db.DB()).ListAvailableProducts(ctx, db.ListAvailableProductsParams{
		Limit:  clampInt32(opts.Limit),
		Offset: clampInt32(opts.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return rowsToProducts(rows), nil
}

// CountAvailable returns the number of available products.
func (r *ProductRepository) CountAvailable(ctx context.Context) (int, error) {
	total, err := db.New(r.db.DB()).CountAvailableProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return int(total), nil
}

// FindAvailableByID returns ErrProductNotFound if the product is missing or disabled.
func (r *ProductRepository) FindAvailableByID(ctx context.Context, id int) (*models.Product, error) {
	key, ok := toKey(id)
	if !ok {
		return nil, productdomain.ErrProductNotFound
	}
	row, err := db.New(r.db.DB()).GetAvailableProduct(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, productdomain.ErrProductNotFound
		}
		return nil, fmt.Errorf("query product: %w", err)
	}
	return rowToProduct(row), nil
}

// FindAvailableByIDs returns the available products among ids.
func (r *ProductRepository) FindAvailableByIDs(ctx context.Context, ids []int) ([]*models.Product, error) {
	keys := make([]int32, 0, len(ids))
	for _, id := range ids {
		// Ids outside the int4 range cannot exist in the table.
		if key, ok := toKey(id); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return []*models.Product{}, nil
	}
	rows, err := db.New(r.db.DB()).ListAvailableProductsByIDs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	return rowsToProducts(rows), nil
}

// Update applies patch and publishes product.updated, or product.disabled
// when the patch turns availability off.
func (r *ProductRepository) Update(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error) {
	key, ok := toKey(id)
	if !ok {
		return nil, productdomain.ErrProductNotFound
	}

	var updated *models.Product
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		params := db.UpdateProductParams{ID: key, Description: nullString(patch.Description)}
		if patch.Name != nil {
			params.Name = sql.NullString{String: patch.Name.String(), Valid: true}
		}
		if patch.Price != nil {
			params.Price = sql.NullFloat64{Float64: patch.Price.Float64(), Valid: true}
		}
		if patch.Available != nil {
			params.Available = sql.NullBool{Bool: *patch.Available, Valid: true}
		}

		row, err := db.New(tx).UpdateProduct(ctx, params)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return productdomain.ErrProductNotFound
			}
			return fmt.Errorf("update product %d: %w", id, err)
		}
		updated = rowToProduct(row)

		topic := domainevents.TopicProductUpdated
		if patch.Available != nil && !*patch.Available {
			topic = domainevents.TopicProductDisabled
		}
		return r.publish(tx, topic, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the product, publishes product.deleted and returns the
// deleted row.
func (r *ProductRepository) Delete(ctx context.Context, id int) (*models.Product, error) {
	key, ok := toKey(id)
	if !ok {
		return nil, productdomain.ErrProductNotFound
	}

	var deleted *models.Product
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		row, err := db.New(tx).DeleteProduct(ctx, key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return productdomain.ErrProductNotFound
			}
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		deleted = rowToProduct(row)
		return r.publish(tx, domainevents.TopicProductDeleted, deleted)
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *ProductRepository) publish(tx *sql.Tx, topic string, p *models.Product) error {
	if r.bus == nil {
		return nil
	}
	event := domainevents.NewProductEvent(p)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", strconv.Itoa(event.Version))
	pub, err := r.bus.NewTxPublisher(tx)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	if err := pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// rowToProduct maps a db.Product to a domain models.Product.
func rowToProduct(row db.Product) *models.Product {
	p := &models.Product{
		ID:        int(row.ID),
		Name:      models.ProductName(row.Name),
		Price:     models.Price(row.Price),
		Available: row.Available,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Description.Valid {
		d := row.Description.String
		p.Description = &d
	}
	return p
}

func rowsToProducts(rows []db.Product) []*models.Product {
	products := make([]*models.Product, len(rows))
	for i, row := range rows {
		products[i] = rowToProduct(row)
	}
	return products
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// toKey narrows id to the SERIAL column type.
func toKey(id int) (int32, bool) {
	if id < math.MinInt32 || id > math.MaxInt32 {
		return 0, false
	}
	return int32(id), true
}

func clampInt32(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < 0 {
		return 0
	}
	return int32(n)
}
