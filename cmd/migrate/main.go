package main

import (
	"log/slog"
	"os"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/migrations/products"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/migrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	if err := migrator.RunMigrations(cfg.DatabaseURL, products.FS); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")
}
