package memory

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
	productdomain "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
	domainevents "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/repositories"
)

// newRepo returns a repository whose clock advances one second per write,
// so creation order is deterministic.
func newRepo(bus *events.EventBus) *ProductRepository {
	r := NewProductRepository(bus)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r
}

func create(t *testing.T, r *ProductRepository, name string) *models.Product {
	t.Helper()
	p, err := r.Create(context.Background(), models.NewProduct(models.ProductName(name), nil, 1, nil))
	require.NoError(t, err)
	return p
}

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	r := newRepo(nil)
	a := create(t, r, "a")
	b := create(t, r, "b")
	require.Equal(t, 1, a.ID)
	require.Equal(t, 2, b.ID)
	require.True(t, b.CreatedAt.After(a.CreatedAt))
}

func TestFindAvailable_NewestFirstAndPaged(t *testing.T) {
	r := newRepo(nil)
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		create(t, r, n)
	}
	_, err := r.Update(context.Background(), 5, models.DisablePatch())
	require.NoError(t, err)

	page, err := r.FindAvailable(context.Background(), repositories.QueryOpts{Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Equal(t, []int{4, 3}, ids(page))

	page, err = r.FindAvailable(context.Background(), repositories.QueryOpts{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, ids(page))

	page, err = r.FindAvailable(context.Background(), repositories.QueryOpts{Limit: 2, Offset: 10})
	require.NoError(t, err)
	require.Empty(t, page)

	page, err = r.FindAvailable(context.Background(), repositories.QueryOpts{Limit: 2, Offset: -4})
	require.NoError(t, err)
	require.Empty(t, page)

	page, err = r.FindAvailable(context.Background(), repositories.QueryOpts{Limit: math.MaxInt, Offset: 3})
	require.NoError(t, err)
	require.Equal(t, []int{1}, ids(page))

	page, err = r.FindAvailable(context.Background(), repositories.QueryOpts{Limit: 0})
	require.NoError(t, err)
	require.Empty(t, page)

	total, err := r.CountAvailable(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, total)
}

func TestFindAvailableByID_HidesDisabled(t *testing.T) {
	r := newRepo(nil)
	p := create(t, r, "a")
	_, err := r.Update(context.Background(), p.ID, models.DisablePatch())
	require.NoError(t, err)

	_, err = r.FindAvailableByID(context.Background(), p.ID)
	require.ErrorIs(t, err, productdomain.ErrProductNotFound)
	_, err = r.FindAvailableByID(context.Background(), 99)
	require.ErrorIs(t, err, productdomain.ErrProductNotFound)
}

func TestFindAvailableByIDs(t *testing.T) {
	r := newRepo(nil)
	create(t, r, "a")
	create(t, r, "b")
	_, err := r.Update(context.Background(), 2, models.DisablePatch())
	require.NoError(t, err)

	found, err := r.FindAvailableByIDs(context.Background(), []int{1, 1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []int{1}, ids(found))
}

func TestReturnedProductsAreCopies(t *testing.T) {
	r := newRepo(nil)
	p := create(t, r, "a")
	p.Name = "mutated"

	got, err := r.FindAvailableByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProductName("a"), got.Name)
}

func TestUpdateAndDelete_Missing(t *testing.T) {
	r := newRepo(nil)
	_, err := r.Update(context.Background(), 1, models.ProductPatch{})
	require.ErrorIs(t, err, productdomain.ErrProductNotFound)
	_, err = r.Delete(context.Background(), 1)
	require.ErrorIs(t, err, productdomain.ErrProductNotFound)
}

func TestDelete_ReturnsLastState(t *testing.T) {
	r := newRepo(nil)
	p := create(t, r, "a")

	deleted, err := r.Delete(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, deleted.ID)
	require.Equal(t, p.Name, deleted.Name)

	total, err := r.CountAvailable(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestWrites_PublishEvents(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewWithWriter(&config.Config{LogLevel: "error"}, io.Discard))
	defer bus.Close() //nolint:errcheck
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	for _, topic := range []string{
		domainevents.TopicProductCreated,
		domainevents.TopicProductUpdated,
		domainevents.TopicProductDisabled,
		domainevents.TopicProductDeleted,
	} {
		topic := topic
		_, err := bus.Subscribe(ctx, topic, func(context.Context, *message.Message) error {
			got <- topic
			return nil
		})
		require.NoError(t, err)
	}

	r := newRepo(bus)
	p := create(t, r, "a")
	name := models.ProductName("b")
	_, err := r.Update(ctx, p.ID, models.ProductPatch{Name: &name})
	require.NoError(t, err)
	_, err = r.Update(ctx, p.ID, models.DisablePatch())
	require.NoError(t, err)
	_, err = r.Delete(ctx, p.ID)
	require.NoError(t, err)

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 4 {
		select {
		case topic := <-got:
			seen[topic] = true
		case <-timeout:
			t.Fatalf("missing events, got %v", seen)
		}
	}
}

func TestWrites_FailedPublishLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	r := newRepo(nil)
	kept := create(t, r, "kept")
	gone := create(t, r, "gone")

	bus := events.NewInMemoryEventBus(logger.NewWithWriter(&config.Config{LogLevel: "error"}, io.Discard))
	require.NoError(t, bus.Close())
	r.bus = bus

	_, err := r.Create(ctx, models.NewProduct("new", nil, 1, nil))
	require.Error(t, err)

	name := models.ProductName("renamed")
	_, err = r.Update(ctx, kept.ID, models.ProductPatch{Name: &name})
	require.Error(t, err)

	_, err = r.Delete(ctx, gone.ID)
	require.Error(t, err)

	r.bus = nil
	total, err := r.CountAvailable(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	got, err := r.FindAvailableByID(ctx, kept.ID)
	require.NoError(t, err)
	require.Equal(t, kept, got)

	_, err = r.FindAvailableByID(ctx, gone.ID)
	require.NoError(t, err)

	next := create(t, r, "next")
	require.Equal(t, 4, next.ID, "ids of rolled back creates are not reused")
}

func ids(ps []*models.Product) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
