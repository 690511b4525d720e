package entity

import "time"

// Warehouse representa un almacén donde se guarda inventario.
// AssignedProductID es metadato informativo: no restringe qué productos se pueden almacenar.
type Warehouse struct {
	ID                int64
	Name              string
	AssignedProductID *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
