package api_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/app"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/rpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/application/api"
	appsvcs "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/application/services"
)

// newClient starts the products routes over an in-memory bus and memory store
// and returns a client connected to them.
func newClient(t *testing.T) *rpc.Client {
	t.Helper()
	cfg := &config.Config{LogLevel: "error", Store: config.DriverMemory, Broker: config.DriverMemory}
	log := logger.NewWithWriter(cfg, io.Discard)
	bus := events.NewInMemoryEventBus(log)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := rpc.NewServer(bus, log)
	require.NoError(t, err)
	api.ProductRoutes(srv, &app.Application{Config: cfg, Logger: log, EventBus: bus})
	require.NoError(t, srv.Start(ctx))

	client, err := rpc.NewClient(ctx, bus, log, 5*time.Second)
	require.NoError(t, err)
	return client
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestProductRoutes_RegistersAllPatterns(t *testing.T) {
	cfg := &config.Config{LogLevel: "error", Store: config.DriverMemory}
	log := logger.NewWithWriter(cfg, io.Discard)
	srv, err := rpc.NewServer(events.NewInMemoryEventBus(log), log)
	require.NoError(t, err)

	api.ProductRoutes(srv, &app.Application{Config: cfg, Logger: log})

	require.ElementsMatch(t, []string{
		"createProduct", "findAllProducts", "findOneProduct", "updateProduct",
		"removeProduct", "disableProduct", "validateProductsExists",
	}, srv.Patterns())
}

func TestCatalogOverTransport(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	var ids []int
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		var created appsvcs.ProductResponse
		require.NoError(t, client.Send(ctx, api.PatternCreateProduct, raw(`{"name":"`+name+`","price":9.99}`), &created))
		require.Equal(t, "Product created!", created.Message)
		require.True(t, created.Data.Available)
		ids = append(ids, created.Data.ID)
	}

	t.Run("findAll first page", func(t *testing.T) {
		var page appsvcs.ProductsPage
		require.NoError(t, client.Send(ctx, api.PatternFindAllProducts, raw(`{"page":1,"limit":2}`), &page))
		require.Len(t, page.Data, 2)
		require.Equal(t, 5, page.TotalCount)
		require.Equal(t, 3, page.TotalPages)
		require.NotNil(t, page.NextPage)
		require.Equal(t, 2, *page.NextPage)
		require.Nil(t, page.PrevPage)
	})

	t.Run("findOne by bare id", func(t *testing.T) {
		var got appsvcs.ProductResponse
		require.NoError(t, client.Send(ctx, api.PatternFindOneProduct, ids[0], &got))
		require.Equal(t, "a", got.Data.Name)
	})

	t.Run("update", func(t *testing.T) {
		var got appsvcs.ProductResponse
		payload := map[string]any{"id": ids[1], "name": "b2"}
		require.NoError(t, client.Send(ctx, api.PatternUpdateProduct, payload, &got))
		require.Equal(t, "Product updated!", got.Message)
		require.Equal(t, "b2", got.Data.Name)
		require.Equal(t, 9.99, got.Data.Price)
	})

	t.Run("disable then findOne", func(t *testing.T) {
		var got appsvcs.ProductResponse
		require.NoError(t, client.Send(ctx, api.PatternDisableProduct, map[string]int{"id": ids[2]}, &got))
		require.False(t, got.Data.Available)

		err := client.Send(ctx, api.PatternFindOneProduct, map[string]int{"id": ids[2]}, nil)
		requireCode(t, err, 404)
	})

	t.Run("remove then findOne", func(t *testing.T) {
		var got appsvcs.ProductResponse
		require.NoError(t, client.Send(ctx, api.PatternRemoveProduct, map[string]string{"id": "4"}, &got))
		require.Equal(t, "Product deleted!", got.Message)
		require.Equal(t, 4, got.Data.ID)

		err := client.Send(ctx, api.PatternFindOneProduct, 4, nil)
		requireCode(t, err, 404)
	})

	t.Run("validateProductsExists", func(t *testing.T) {
		var got appsvcs.ProductsResponse
		require.NoError(t, client.Send(ctx, api.PatternValidateProductsExists, []int{ids[0], ids[0], ids[1]}, &got))
		require.Equal(t, "Products Existing!", got.Message)
		require.Len(t, got.Data, 2)

		err := client.Send(ctx, api.PatternValidateProductsExists, []int{ids[0], ids[2], 99}, nil)
		rpcErr := requireCode(t, err, 404)
		require.Equal(t, "Some products do not exist or are not available.", rpcErr.Message)
		require.Len(t, rpcErr.Errors, 2)
	})

	t.Run("invalid payload", func(t *testing.T) {
		err := client.Send(ctx, api.PatternCreateProduct, raw(`{"name":"x","price":-1}`), nil)
		rpcErr := requireCode(t, err, 400)
		require.Equal(t, "Bad Request", rpcErr.Tag)
	})
}

func requireCode(t *testing.T, err error, code int) *errrpc.Error {
	t.Helper()
	var rpcErr *errrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, code, rpcErr.Code)
	return rpcErr
}
