package repository

import (
	"context"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
)

// MovementFilter filtros opcionales para listar movimientos (0 = sin filtro).
type MovementFilter struct {
	ProductID   int64
	WarehouseID int64 // solo aplica a entradas
	Limit       int
	Offset      int
}

// MovementRepository es el registro append-only de entradas y salidas.
// No existe operación de actualización ni borrado.
// Los listados se ordenan por created_at ascendente y, a igualdad, por id (orden de inserción).
type MovementRepository interface {
	CreateEntry(ctx context.Context, movement *entity.EntryMovement) error
	CreateExit(ctx context.Context, movement *entity.ExitMovement) error
	ListEntries(ctx context.Context, filter MovementFilter) ([]*entity.EntryMovement, error)
	ListExits(ctx context.Context, filter MovementFilter) ([]*entity.ExitMovement, error)
}
