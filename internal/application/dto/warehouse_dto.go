package dto

import "time"

// CreateWarehouseRequest entrada para crear un almacén.
type CreateWarehouseRequest struct {
	Name      string `json:"name" validate:"required,notblank,max=200"`
	ProductID *int64 `json:"product_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateWarehouseRequest entrada para actualizar un almacén.
// ClearProduct quita el producto asignado.
type UpdateWarehouseRequest struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=200"`
	ProductID    *int64  `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	ClearProduct bool    `json:"clear_product,omitempty"`
}

// WarehouseResponse salida de un almacén.
type WarehouseResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ProductID *int64    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseListResponse lista paginada de almacenes.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}
