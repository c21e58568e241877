package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
)

// Topics published by the product store after each committed write.
// Consumers subscribe via EventBus.Subscribe(ctx, events.TopicProductCreated, ...).
const (
	TopicProductCreated  = "product.created"
	TopicProductUpdated  = "product.updated"
	TopicProductDisabled = "product.disabled"
	TopicProductDeleted  = "product.deleted"
)

// EventVersion is the current ProductEvent schema version.
const EventVersion = 1

// ProductEvent carries the state of a product right after a write.
type ProductEvent struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	ProductID  int       `json:"product_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Available  bool      `json:"available"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProductEvent snapshots p into a fresh event.
func NewProductEvent(p *models.Product) ProductEvent {
	return ProductEvent{
		EventID:    uuid.New(),
		Version:    EventVersion,
		ProductID:  p.ID,
		Name:       p.Name.String(),
		Price:      p.Price.Float64(),
		Available:  p.Available,
		OccurredAt: time.Now().UTC(),
	}
}
