package api

import (
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/app"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/rpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/application/handlers"
	appsvcs "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/application/services"
)

// Message patterns served by the products service.
const (
	PatternCreateProduct          = "createProduct"
	PatternFindAllProducts        = "findAllProducts"
	PatternFindOneProduct         = "findOneProduct"
	PatternUpdateProduct          = "updateProduct"
	PatternRemoveProduct          = "removeProduct"
	PatternDisableProduct         = "disableProduct"
	PatternValidateProductsExists = "validateProductsExists"
)

// ProductRoutes registers the product message patterns on the provided server.
func ProductRoutes(srv *rpc.Server, a *app.Application) {
	svcs := appsvcs.New(a)
	h := handlers.NewProductHandlers(svcs.Product, a.Logger)

	srv.Handle(PatternCreateProduct, h.CreateProduct)
	srv.Handle(PatternFindAllProducts, h.FindAllProducts)
	srv.Handle(PatternFindOneProduct, h.FindOneProduct)
	srv.Handle(PatternUpdateProduct, h.UpdateProduct)
	srv.Handle(PatternRemoveProduct, h.RemoveProduct)
	srv.Handle(PatternDisableProduct, h.DisableProduct)
	srv.Handle(PatternValidateProductsExists, h.ValidateProductsExists)
}
