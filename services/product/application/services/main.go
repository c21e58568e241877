package services

import (
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/app"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/repositories"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/infrastructure/persistence/memory"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Product *ProductService
}

// New wires the product services with infrastructure from the Application
// container. STORE=memory, or a missing database, selects the memory repository.
func New(a *app.Application) *Services {
	var repo repositories.ProductRepository
	if a.Config.Store == config.DriverMemory || a.Db == nil {
		repo = memory.NewProductRepository(a.EventBus)
	} else {
		repo = postgres.NewProductRepository(a.Db, a.EventBus)
	}
	return &Services{
		Product: NewProductService(repo),
	}
}
