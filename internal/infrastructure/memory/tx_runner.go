package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// productLocks un semáforo de capacidad 1 por producto.
type productLocks struct {
	mu sync.Mutex
	m  map[int64]chan struct{}
}

func newProductLocks() *productLocks {
	return &productLocks{m: make(map[int64]chan struct{})}
}

func (l *productLocks) get(productID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.m[productID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.m[productID] = ch
	}
	return ch
}

// acquire espera a lo sumo wait; vencido el plazo devuelve domain.ErrTransient.
func (l *productLocks) acquire(ctx context.Context, productID int64, wait time.Duration) error {
	ch := l.get(productID)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: bloqueo del producto %d excedió %s", domain.ErrTransient, productID, wait)
	}
}

func (l *productLocks) release(productID int64) {
	<-l.get(productID)
}

// TxRunner ejecuta transacciones sobre el Store.
// Los bloqueos de producto se retienen hasta el fin de la transacción; las escrituras del libro
// y del registro se acumulan y se aplican juntas en el commit, o se descartan.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con repositorios atados a la transacción.
// Los repositorios de catálogo no se aíslan: el motor solo los lee.
func (r *TxRunner) Run(ctx context.Context, fn inventory.TxFunc) error {
	t := &tx{
		s:     r.s,
		held:  make(map[int64]struct{}),
		stock: make(map[stockKey]*entity.StockRow),
	}
	defer t.release()

	if err := fn(&txMovementRepo{t: t}, &txStockRepo{t: t}, r.s.Products(), r.s.Warehouses()); err != nil {
		return err
	}
	return t.commit()
}

type tx struct {
	s       *Store
	held    map[int64]struct{}
	stock   map[stockKey]*entity.StockRow
	entries []*entity.EntryMovement
	exits   []*entity.ExitMovement
}

func (t *tx) lock(ctx context.Context, productID int64) error {
	if _, ok := t.held[productID]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, productID, t.s.lockWait); err != nil {
		return err
	}
	t.held[productID] = struct{}{}
	return nil
}

func (t *tx) release() {
	for id := range t.held {
		t.s.locks.release(id)
	}
	t.held = nil
}

// commit aplica las escrituras. Si un producto o almacén referenciado se borró durante la
// transacción, no aplica nada y devuelve domain.ErrNotFound.
func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.checkRefs(); err != nil {
		return err
	}
	for k, row := range t.stock {
		t.s.stock[k] = row
	}
	t.s.entries = append(t.s.entries, t.entries...)
	t.s.exits = append(t.s.exits, t.exits...)
	return nil
}

// checkRefs requiere t.s.mu.
func (t *tx) checkRefs() error {
	product := func(id int64) error {
		if _, ok := t.s.products[id]; !ok {
			return fmt.Errorf("producto %d eliminado durante la transacción: %w", id, domain.ErrNotFound)
		}
		return nil
	}
	warehouse := func(id int64) error {
		if _, ok := t.s.warehouses[id]; !ok {
			return fmt.Errorf("almacén %d eliminado durante la transacción: %w", id, domain.ErrNotFound)
		}
		return nil
	}
	for k := range t.stock {
		if err := product(k.productID); err != nil {
			return err
		}
		if err := warehouse(k.warehouseID); err != nil {
			return err
		}
	}
	for _, m := range t.entries {
		if err := product(m.ProductID); err != nil {
			return err
		}
		if err := warehouse(m.WarehouseID); err != nil {
			return err
		}
	}
	for _, m := range t.exits {
		if err := product(m.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) current(k stockKey) *entity.StockRow {
	if row, ok := t.stock[k]; ok {
		return row
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.stock[k]
}

// ── Libro dentro de la transacción ────────────────────────────────────────────

type txStockRepo struct{ t *tx }

func (r *txStockRepo) Get(ctx context.Context, productID, warehouseID int64) (*entity.StockRow, error) {
	if err := r.t.lock(ctx, productID); err != nil {
		return nil, err
	}
	return cloneRow(r.t.current(stockKey{productID, warehouseID})), nil
}

func (r *txStockRepo) ListByProduct(ctx context.Context, productID int64) ([]*entity.StockRow, error) {
	if err := r.t.lock(ctx, productID); err != nil {
		return nil, err
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	return r.t.s.rowsOf(productID, r.t.stock), nil
}

func (r *txStockRepo) ListByProductForUpdate(ctx context.Context, productID int64) ([]*entity.StockRow, error) {
	return r.ListByProduct(ctx, productID)
}

func (r *txStockRepo) ApplyDelta(ctx context.Context, productID, warehouseID, delta int64, txID string) (*entity.StockRow, error) {
	if err := r.t.lock(ctx, productID); err != nil {
		return nil, err
	}
	k := stockKey{productID, warehouseID}
	next, err := applyDelta(r.t.current(k), productID, warehouseID, delta, txID, r.t.s)
	if err != nil {
		return nil, err
	}
	r.t.stock[k] = next
	return cloneRow(next), nil
}

func (r *txStockRepo) ListAll(ctx context.Context) ([]*entity.StockRow, error) {
	return r.t.s.Stock().ListAll(ctx)
}

func (r *txStockRepo) ListBelow(ctx context.Context, threshold int64) ([]*entity.StockRow, error) {
	return r.t.s.Stock().ListBelow(ctx, threshold)
}

// ── Registro dentro de la transacción ─────────────────────────────────────────

type txMovementRepo struct{ t *tx }

func (r *txMovementRepo) CreateEntry(_ context.Context, m *entity.EntryMovement) error {
	r.t.s.mu.Lock()
	r.t.s.stampEntry(m)
	r.t.s.mu.Unlock()
	r.t.entries = append(r.t.entries, storedEntry(m))
	return nil
}

func (r *txMovementRepo) CreateExit(_ context.Context, m *entity.ExitMovement) error {
	r.t.s.mu.Lock()
	r.t.s.stampExit(m)
	r.t.s.mu.Unlock()
	r.t.exits = append(r.t.exits, storedExit(m))
	return nil
}

func (r *txMovementRepo) ListEntries(ctx context.Context, f repository.MovementFilter) ([]*entity.EntryMovement, error) {
	return r.t.s.Movements().ListEntries(ctx, f)
}

func (r *txMovementRepo) ListExits(ctx context.Context, f repository.MovementFilter) ([]*entity.ExitMovement, error) {
	return r.t.s.Movements().ListExits(ctx, f)
}
