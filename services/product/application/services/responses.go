package services

import (
	"time"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain/models"
)

// ProductDTO is the wire form of a product.
type ProductDTO struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductResponse is the success envelope for single-product operations.
type ProductResponse struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message"`
	Data    ProductDTO `json:"data"`
}

// ProductsResponse is the success envelope for validateProductsExists.
type ProductsResponse struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	Data    []ProductDTO `json:"data"`
}

// ProductsPage is the success envelope for findAllProducts. NextPage and
// PrevPage encode as null when there is no such page.
type ProductsPage struct {
	OK         bool         `json:"ok"`
	Message    string       `json:"message"`
	Data       []ProductDTO `json:"data"`
	Count      int          `json:"count"`
	TotalCount int          `json:"totalCount"`
	TotalPages int          `json:"totalPages"`
	NextPage   *int         `json:"nextPage"`
	PrevPage   *int         `json:"prevPage"`
}

func toDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name.String(),
		Description: p.Description,
		Price:       p.Price.Float64(),
		Available:   p.Available,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toDTOs(ps []*models.Product) []ProductDTO {
	out := make([]ProductDTO, len(ps))
	for i, p := range ps {
		out[i] = toDTO(p)
	}
	return out
}

func productResponse(message string, p *models.Product) *ProductResponse {
	return &ProductResponse{OK: true, Message: message, Data: toDTO(p)}
}
