package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	Barcode string          `json:"barcode" validate:"required,notblank,max=100"`
	Name    string          `json:"name" validate:"required,notblank,max=200"`
	Price   decimal.Decimal `json:"price" validate:"money"`
}

// UpdateProductRequest entrada para actualizar un producto. El stock no se toca aquí.
type UpdateProductRequest struct {
	Barcode *string          `json:"barcode" validate:"omitempty,notblank,max=100"`
	Name    *string          `json:"name" validate:"omitempty,notblank,max=200"`
	Price   *decimal.Decimal `json:"price" validate:"omitempty,money"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID        int64           `json:"id"`
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
