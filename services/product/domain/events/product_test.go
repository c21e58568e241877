package events_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
)

func TestNewProductEvent(t *testing.T) {
	p := &models.Product{ID: 42, Name: "Widget", Price: 9.99, Available: true}

	evt := events.NewProductEvent(p)

	if evt.EventID == uuid.Nil {
		t.Fatal("expected a generated EventID")
	}
	if evt.Version != events.EventVersion {
		t.Errorf("Version: got %d, want %d", evt.Version, events.EventVersion)
	}
	if evt.ProductID != 42 || evt.Name != "Widget" || evt.Price != 9.99 || !evt.Available {
		t.Errorf("unexpected snapshot: %+v", evt)
	}
	if evt.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be set")
	}
}

func TestProductEvent_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(events.NewProductEvent(&models.Product{ID: 1, Name: "x"}))
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal to map failed: %v", err)
	}

	for _, field := range []string{"event_id", "version", "product_id", "name", "price", "available", "occurred_at"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("expected JSON field %q not found in: %s", field, data)
		}
	}
}

func TestTopics_Values(t *testing.T) {
	want := map[string]string{
		events.TopicProductCreated:  "product.created",
		events.TopicProductUpdated:  "product.updated",
		events.TopicProductDisabled: "product.disabled",
		events.TopicProductDeleted:  "product.deleted",
	}
	for got, expected := range want {
		if got != expected {
			t.Errorf("expected %q, got %q", expected, got)
		}
	}
}
