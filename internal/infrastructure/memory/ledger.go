package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

func cloneRow(r *entity.StockRow) *entity.StockRow {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// applyDelta calcula la fila resultante sin escribirla.
func applyDelta(cur *entity.StockRow, productID, warehouseID, delta int64, txID string, s *Store) (*entity.StockRow, error) {
	next := &entity.StockRow{ProductID: productID, WarehouseID: warehouseID}
	if cur != nil {
		next = cloneRow(cur)
	}
	if delta > 0 && next.Quantity > math.MaxInt64-delta {
		return nil, fmt.Errorf("producto %d almacén %d: %d%+d excede el máximo: %w",
			productID, warehouseID, next.Quantity, delta, domain.ErrInvalidQuantity)
	}
	if next.Quantity+delta < 0 {
		return nil, fmt.Errorf("producto %d almacén %d: %d%+d: %w",
			productID, warehouseID, next.Quantity, delta, domain.ErrNegativeQuantity)
	}
	next.Quantity += delta
	next.LastTransactionID = txID
	next.UpdatedAt = s.now().UTC()
	next.ProductName, next.WarehouseName = "", ""
	return next, nil
}

// ── Libro (fuera de transacción) ──────────────────────────────────────────────

type stockRepo struct{ s *Store }

func (r *stockRepo) Get(_ context.Context, productID, warehouseID int64) (*entity.StockRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneRow(r.s.stock[stockKey{productID, warehouseID}]), nil
}

func (r *stockRepo) ListByProduct(_ context.Context, productID int64) ([]*entity.StockRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.rowsOf(productID, nil), nil
}

// ListByProductForUpdate fuera de una transacción no hay nada que retener: equivale a ListByProduct.
func (r *stockRepo) ListByProductForUpdate(ctx context.Context, productID int64) ([]*entity.StockRow, error) {
	return r.ListByProduct(ctx, productID)
}

// ApplyDelta fuera de transacción: toma el bloqueo del producto solo durante la escritura.
func (r *stockRepo) ApplyDelta(ctx context.Context, productID, warehouseID, delta int64, txID string) (*entity.StockRow, error) {
	if err := r.s.locks.acquire(ctx, productID, r.s.lockWait); err != nil {
		return nil, err
	}
	defer r.s.locks.release(productID)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[productID]; !ok {
		return nil, fmt.Errorf("producto %d: %w", productID, domain.ErrNotFound)
	}
	if _, ok := r.s.warehouses[warehouseID]; !ok {
		return nil, fmt.Errorf("almacén %d: %w", warehouseID, domain.ErrNotFound)
	}
	k := stockKey{productID, warehouseID}
	next, err := applyDelta(r.s.stock[k], productID, warehouseID, delta, txID, r.s)
	if err != nil {
		return nil, err
	}
	r.s.stock[k] = next
	return cloneRow(next), nil
}

func (r *stockRepo) ListAll(_ context.Context) ([]*entity.StockRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.namedRows(func(*entity.StockRow) bool { return true }), nil
}

func (r *stockRepo) ListBelow(_ context.Context, threshold int64) ([]*entity.StockRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.namedRows(func(row *entity.StockRow) bool { return row.Quantity < threshold }), nil
}

// rowsOf filas confirmadas del producto con overlay opcional, ordenadas por almacén. Requiere s.mu.
func (s *Store) rowsOf(productID int64, overlay map[stockKey]*entity.StockRow) []*entity.StockRow {
	merged := make(map[int64]*entity.StockRow)
	for k, row := range s.stock {
		if k.productID == productID {
			merged[k.warehouseID] = row
		}
	}
	for k, row := range overlay {
		if k.productID == productID {
			merged[k.warehouseID] = row
		}
	}
	out := make([]*entity.StockRow, 0, len(merged))
	for _, row := range merged {
		out = append(out, cloneRow(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out
}

// namedRows filas confirmadas que cumplen keep, con nombres resueltos. Requiere s.mu.
func (s *Store) namedRows(keep func(*entity.StockRow) bool) []*entity.StockRow {
	out := make([]*entity.StockRow, 0, len(s.stock))
	for _, row := range s.stock {
		if !keep(row) {
			continue
		}
		c := cloneRow(row)
		if p, ok := s.products[c.ProductID]; ok {
			c.ProductName = p.Name
		}
		if w, ok := s.warehouses[c.WarehouseID]; ok {
			c.WarehouseName = w.Name
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out
}

// ── Registro de movimientos ───────────────────────────────────────────────────

type movementRepo struct{ s *Store }

func (r *movementRepo) CreateEntry(_ context.Context, m *entity.EntryMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stampEntry(m)
	r.s.entries = append(r.s.entries, storedEntry(m))
	return nil
}

func (r *movementRepo) CreateExit(_ context.Context, m *entity.ExitMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stampExit(m)
	r.s.exits = append(r.s.exits, storedExit(m))
	return nil
}

func (r *movementRepo) ListEntries(_ context.Context, f repository.MovementFilter) ([]*entity.EntryMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.EntryMovement, 0)
	for _, m := range r.s.entries {
		if f.ProductID != 0 && m.ProductID != f.ProductID {
			continue
		}
		if f.WarehouseID != 0 && m.WarehouseID != f.WarehouseID {
			continue
		}
		c := storedEntry(m)
		c.Product = cloneProduct(r.s.products[m.ProductID])
		c.Warehouse = cloneWarehouse(r.s.warehouses[m.WarehouseID])
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *movementRepo) ListExits(_ context.Context, f repository.MovementFilter) ([]*entity.ExitMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.ExitMovement, 0)
	for _, m := range r.s.exits {
		if f.ProductID != 0 && m.ProductID != f.ProductID {
			continue
		}
		c := storedExit(m)
		c.Product = cloneProduct(r.s.products[m.ProductID])
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

// stampEntry asigna id de secuencia y fecha. Requiere s.mu.
func (s *Store) stampEntry(m *entity.EntryMovement) {
	s.entrySeq++
	m.ID = s.entrySeq
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
}

// stampExit asigna id de secuencia y fecha. Requiere s.mu.
func (s *Store) stampExit(m *entity.ExitMovement) {
	s.exitSeq++
	m.ID = s.exitSeq
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
}

// storedEntry copia sin snapshots: se resuelven en cada lectura.
func storedEntry(m *entity.EntryMovement) *entity.EntryMovement {
	c := *m
	c.Product, c.Warehouse = nil, nil
	return &c
}

func storedExit(m *entity.ExitMovement) *entity.ExitMovement {
	c := *m
	c.Product = nil
	return &c
}
