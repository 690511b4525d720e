package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `product_id, warehouse_id, quantity, last_transaction_id, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func scanStock(row pgx.Row) (*entity.StockRow, error) {
	var s entity.StockRow
	if err := row.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &s.LastTransactionID, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Get obtiene el stock actual de un producto en un almacén.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID int64) (*entity.StockRow, error) {
	query := `SELECT ` + stockColumns + ` FROM stock WHERE product_id = $1 AND warehouse_id = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

func (r *StockRepo) ListByProduct(ctx context.Context, productID int64) ([]*entity.StockRow, error) {
	return r.listByProduct(ctx, productID, "")
}

// ListByProductForUpdate bloquea las filas del producto en orden de almacén (SELECT FOR UPDATE).
// Todas las salidas bloquean en el mismo orden, así dos salidas concurrentes no se interbloquean.
func (r *StockRepo) ListByProductForUpdate(ctx context.Context, productID int64) ([]*entity.StockRow, error) {
	return r.listByProduct(ctx, productID, " FOR UPDATE")
}

func (r *StockRepo) listByProduct(ctx context.Context, productID int64, lock string) ([]*entity.StockRow, error) {
	query := `SELECT ` + stockColumns + ` FROM stock WHERE product_id = $1 ORDER BY warehouse_id` + lock
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list stock by product: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockRow
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ApplyDelta suma delta a la fila en una sola sentencia (upsert). La fila queda bloqueada hasta el fin de la tx.
// El CHECK stock_quantity_non_negative rechaza cualquier resultado negativo.
func (r *StockRepo) ApplyDelta(ctx context.Context, productID, warehouseID, delta int64, txID string) (*entity.StockRow, error) {
	query := `
		INSERT INTO stock (product_id, warehouse_id, quantity, last_transaction_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity,
		              last_transaction_id = EXCLUDED.last_transaction_id,
		              updated_at = now()
		RETURNING ` + stockColumns
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID, delta, txID))
	if err != nil {
		return nil, deltaError(err, productID, warehouseID, delta)
	}
	return s, nil
}

func deltaError(err error, productID, warehouseID, delta int64) error {
	switch {
	case isCheckViolation(err):
		return fmt.Errorf("producto %d almacén %d delta %d: %w", productID, warehouseID, delta, domain.ErrNegativeQuantity)
	case isOutOfRange(err):
		return fmt.Errorf("producto %d almacén %d delta %d excede el máximo: %w", productID, warehouseID, delta, domain.ErrInvalidQuantity)
	case isForeignKeyViolation(err):
		return domain.ErrNotFound
	}
	return fmt.Errorf("apply stock delta: %w", err)
}

const namedStockQuery = `
	SELECT s.product_id, s.warehouse_id, s.quantity, s.last_transaction_id, s.updated_at, p.name, w.name
	FROM stock s
	JOIN products p ON p.id = s.product_id
	JOIN warehouses w ON w.id = s.warehouse_id`

// ListAll todas las filas con nombres de producto y almacén.
func (r *StockRepo) ListAll(ctx context.Context) ([]*entity.StockRow, error) {
	return r.listNamed(ctx, namedStockQuery+` ORDER BY s.product_id, s.warehouse_id`)
}

// ListBelow filas con cantidad < threshold.
func (r *StockRepo) ListBelow(ctx context.Context, threshold int64) ([]*entity.StockRow, error) {
	return r.listNamed(ctx, namedStockQuery+` WHERE s.quantity < $1 ORDER BY s.product_id, s.warehouse_id`, threshold)
}

func (r *StockRepo) listNamed(ctx context.Context, query string, args ...any) ([]*entity.StockRow, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockRow
	for rows.Next() {
		var s entity.StockRow
		if err := rows.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &s.LastTransactionID, &s.UpdatedAt,
			&s.ProductName, &s.WarehouseName); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
