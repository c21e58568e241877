package app

import (
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/cache"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/database"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to every service's Routes call during process initialization.
//
// Logging: app.Logger is backed by a trace-aware handler. Use slog's context
// methods and trace_id, span_id and correlation_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "fetching product", "product_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config   *config.Config
	Db       *database.Database // nil when STORE=memory
	Logger   logger.Logger
	EventBus *events.EventBus
	Redis    *cache.RedisClient // nil when the reply cache is disabled
}
