package repository

import (
	"context"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
)

// StockRepository es el libro de existencias por (producto, almacén).
// Las variantes ForUpdate y ApplyDelta solo tienen sentido dentro de una transacción (TxRunner).
type StockRepository interface {
	// Get devuelve (nil, nil) si la fila nunca fue creada.
	Get(ctx context.Context, productID, warehouseID int64) (*entity.StockRow, error)
	// ListByProduct devuelve las filas del producto ordenadas por almacén ascendente.
	ListByProduct(ctx context.Context, productID int64) ([]*entity.StockRow, error)
	// ListByProductForUpdate igual que ListByProduct pero bloquea las filas (en ese orden) hasta el fin de la tx.
	ListByProductForUpdate(ctx context.Context, productID int64) ([]*entity.StockRow, error)
	// ApplyDelta crea la fila en 0 si no existe y le suma delta.
	// Devuelve domain.ErrNegativeQuantity si el resultado sería negativo.
	ApplyDelta(ctx context.Context, productID, warehouseID, delta int64, transactionID string) (*entity.StockRow, error)
	// ListAll devuelve todas las filas con nombres de producto y almacén resueltos.
	ListAll(ctx context.Context) ([]*entity.StockRow, error)
	// ListBelow devuelve las filas con cantidad menor a threshold.
	ListBelow(ctx context.Context, threshold int64) ([]*entity.StockRow, error)
}
