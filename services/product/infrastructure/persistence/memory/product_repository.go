// Package memory is a process-local ProductRepository for development and
// tests. State is lost on restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	productdomain "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
	domainevents "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/repositories"
)

// ProductRepository keeps products in a map guarded by a RWMutex. Returned
// products are copies; callers cannot mutate stored state.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[int]*models.Product
	nextID   int
	bus      *events.EventBus
	now      func() time.Time
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository returns an empty repository. When bus is non-nil every
// write publishes a product event after the change is applied; if publishing
// fails the change is undone and the error returned.
func NewProductRepository(bus *events.EventBus) *ProductRepository {
	return &ProductRepository{
		products: make(map[int]*models.Product),
		nextID:   1,
		bus:      bus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	r.mu.Lock()
	stored := clone(p)
	stored.ID = r.nextID
	r.nextID++
	now := r.now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.products[stored.ID] = stored
	out := clone(stored)
	r.mu.Unlock()

	if err := r.publish(ctx, domainevents.TopicProductCreated, out); err != nil {
		r.mu.Lock()
		delete(r.products, out.ID)
		r.mu.Unlock()
		return nil, err
	}
	return out, nil
}

func (r *ProductRepository) FindAvailable(_ context.Context, opts repositories.QueryOpts) ([]*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	available := r.availableLocked()
	sort.Slice(available, func(i, j int) bool {
		a, b := available[i], available[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if opts.Offset < 0 || opts.Offset >= len(available) || opts.Limit <= 0 {
		return []*models.Product{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(available) || end < 0 {
		end = len(available)
	}
	return available[opts.Offset:end], nil
}

func (r *ProductRepository) CountAvailable(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.availableLocked()), nil
}

func (r *ProductRepository) FindAvailableByID(_ context.Context, id int) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok || !p.Available {
		return nil, productdomain.ErrProductNotFound
	}
	return clone(p), nil
}

func (r *ProductRepository) FindAvailableByIDs(_ context.Context, ids []int) ([]*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[int]bool, len(ids))
	out := []*models.Product{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.products[id]; ok && p.Available {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error) {
	r.mu.Lock()
	p, ok := r.products[id]
	if !ok {
		r.mu.Unlock()
		return nil, productdomain.ErrProductNotFound
	}
	before := clone(p)
	patch.Apply(p, r.now())
	out := clone(p)
	r.mu.Unlock()

	topic := domainevents.TopicProductUpdated
	if patch.Available != nil && !*patch.Available {
		topic = domainevents.TopicProductDisabled
	}
	if err := r.publish(ctx, topic, out); err != nil {
		r.mu.Lock()
		// Restore unless a later write already replaced this version.
		if cur, ok := r.products[id]; ok && cur.UpdatedAt.Equal(out.UpdatedAt) {
			r.products[id] = before
		}
		r.mu.Unlock()
		return nil, err
	}
	return out, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int) (*models.Product, error) {
	r.mu.Lock()
	p, ok := r.products[id]
	if !ok {
		r.mu.Unlock()
		return nil, productdomain.ErrProductNotFound
	}
	delete(r.products, id)
	r.mu.Unlock()

	if err := r.publish(ctx, domainevents.TopicProductDeleted, p); err != nil {
		r.mu.Lock()
		if _, taken := r.products[id]; !taken {
			r.products[id] = p
		}
		r.mu.Unlock()
		return nil, err
	}
	return clone(p), nil
}

func (r *ProductRepository) availableLocked() []*models.Product {
	out := make([]*models.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.Available {
			out = append(out, clone(p))
		}
	}
	return out
}

func (r *ProductRepository) publish(ctx context.Context, topic string, p *models.Product) error {
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
	return r.bus.Publish(ctx, topic, msg)
}

func clone(p *models.Product) *models.Product {
	c := *p
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	return &c
}
