package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo registro append-only de entradas y salidas. Solo INSERT y SELECT.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// CreateEntry inserta la entrada y completa su ID.
func (r *MovementRepo) CreateEntry(ctx context.Context, m *entity.EntryMovement) error {
	query := `
		INSERT INTO stock_entries (transaction_id, user_id, product_id, warehouse_id, quantity, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.TransactionID, m.ActorID, m.ProductID, m.WarehouseID, m.Quantity, m.Note, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert stock entry: %w", err)
	}
	return nil
}

// CreateExit inserta la salida y completa su ID.
func (r *MovementRepo) CreateExit(ctx context.Context, m *entity.ExitMovement) error {
	query := `
		INSERT INTO stock_exits (transaction_id, user_id, product_id, quantity, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.TransactionID, m.ActorID, m.ProductID, m.Quantity, m.Reason, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert stock exit: %w", err)
	}
	return nil
}

// ListEntries entradas con snapshots de producto y almacén, en orden de inserción.
func (r *MovementRepo) ListEntries(ctx context.Context, f repository.MovementFilter) ([]*entity.EntryMovement, error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID != 0 {
		args = append(args, f.ProductID)
		where = append(where, fmt.Sprintf("e.product_id = $%d", len(args)))
	}
	if f.WarehouseID != 0 {
		args = append(args, f.WarehouseID)
		where = append(where, fmt.Sprintf("e.warehouse_id = $%d", len(args)))
	}
	query := `
		SELECT e.id, e.transaction_id, e.user_id, e.product_id, e.warehouse_id, e.quantity, e.note, e.created_at,
		       p.id, p.barcode, p.name, p.price, p.created_at, p.updated_at,
		       w.id, w.name, w.product_id, w.created_at, w.updated_at
		FROM stock_entries e
		JOIN products p ON p.id = e.product_id
		JOIN warehouses w ON w.id = e.warehouse_id` +
		whereClause(where) + ` ORDER BY e.created_at, e.id` + pageClause(&args, f)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock entries: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.EntryMovement, 0)
	for rows.Next() {
		var (
			m entity.EntryMovement
			p entity.Product
			w entity.Warehouse
		)
		if err := rows.Scan(
			&m.ID, &m.TransactionID, &m.ActorID, &m.ProductID, &m.WarehouseID, &m.Quantity, &m.Note, &m.CreatedAt,
			&p.ID, &p.Barcode, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt,
			&w.ID, &w.Name, &w.AssignedProductID, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock entry: %w", err)
		}
		m.Product, m.Warehouse = &p, &w
		list = append(list, &m)
	}
	return list, rows.Err()
}

// ListExits salidas con snapshot de producto, en orden de inserción.
func (r *MovementRepo) ListExits(ctx context.Context, f repository.MovementFilter) ([]*entity.ExitMovement, error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID != 0 {
		args = append(args, f.ProductID)
		where = append(where, fmt.Sprintf("x.product_id = $%d", len(args)))
	}
	query := `
		SELECT x.id, x.transaction_id, x.user_id, x.product_id, x.quantity, x.reason, x.created_at,
		       p.id, p.barcode, p.name, p.price, p.created_at, p.updated_at
		FROM stock_exits x
		JOIN products p ON p.id = x.product_id` +
		whereClause(where) + ` ORDER BY x.created_at, x.id` + pageClause(&args, f)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock exits: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.ExitMovement, 0)
	for rows.Next() {
		var (
			m entity.ExitMovement
			p entity.Product
		)
		if err := rows.Scan(
			&m.ID, &m.TransactionID, &m.ActorID, &m.ProductID, &m.Quantity, &m.Reason, &m.CreatedAt,
			&p.ID, &p.Barcode, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock exit: %w", err)
		}
		m.Product = &p
		list = append(list, &m)
	}
	return list, rows.Err()
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func pageClause(args *[]any, f repository.MovementFilter) string {
	var b strings.Builder
	if f.Limit > 0 {
		*args = append(*args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(*args))
	}
	if f.Offset > 0 {
		*args = append(*args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(*args))
	}
	return b.String()
}

