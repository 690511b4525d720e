// Package memory implementa los puertos de persistencia en memoria.
// Se usa en tests y con APP_STORAGE=memory; mantiene las mismas garantías
// de atomicidad que el store PostgreSQL: bloqueo por producto durante la transacción
// y escrituras del libro diferidas hasta el commit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

// DefaultLockWait espera máxima por el bloqueo de un producto antes de devolver domain.ErrTransient.
const DefaultLockWait = 3 * time.Second

type stockKey struct {
	productID   int64
	warehouseID int64
}

// Store datos confirmados. Toda lectura devuelve copias.
type Store struct {
	mu sync.RWMutex

	products   map[int64]*entity.Product
	warehouses map[int64]*entity.Warehouse
	users      map[int64]*entity.User
	stock      map[stockKey]*entity.StockRow
	entries    []*entity.EntryMovement
	exits      []*entity.ExitMovement

	productSeq   int64
	warehouseSeq int64
	userSeq      int64
	entrySeq     int64
	exitSeq      int64

	locks    *productLocks
	lockWait time.Duration
	now      func() time.Time
}

// Option configura el Store.
type Option func(*Store)

// WithLockWait fija la espera máxima por bloqueo de producto.
func WithLockWait(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

// New crea un store vacío.
func New(opts ...Option) *Store {
	s := &Store{
		products:   make(map[int64]*entity.Product),
		warehouses: make(map[int64]*entity.Warehouse),
		users:      make(map[int64]*entity.User),
		stock:      make(map[stockKey]*entity.StockRow),
		locks:      newProductLocks(),
		lockWait:   DefaultLockWait,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Products repositorio de productos sobre el store.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Warehouses repositorio de almacenes sobre el store.
func (s *Store) Warehouses() repository.WarehouseRepository { return &warehouseRepo{s: s} }

// Users repositorio de usuarios sobre el store.
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

// Stock lecturas del libro fuera de transacción.
func (s *Store) Stock() repository.StockRepository { return &stockRepo{s: s} }

// Movements lecturas del registro de movimientos fuera de transacción.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ── Productos ─────────────────────────────────────────────────────────────────

type productRepo struct{ s *Store }

func cloneProduct(p *entity.Product) *entity.Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (r *productRepo) barcodeTaken(barcode string, exceptID int64) bool {
	for _, p := range r.s.products {
		if p.ID != exceptID && p.Barcode == barcode {
			return true
		}
	}
	return false
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.barcodeTaken(p.Barcode, 0) {
		return domain.ErrConflict
	}
	r.s.productSeq++
	now := r.s.now().UTC()
	p.ID = r.s.productSeq
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneProduct(r.s.products[id]), nil
}

func (r *productRepo) GetByBarcode(_ context.Context, barcode string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products {
		if p.Barcode == barcode {
			return cloneProduct(p), nil
		}
	}
	return nil, nil
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.barcodeTaken(p.Barcode, p.ID) {
		return domain.ErrConflict
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.s.now().UTC()
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *productRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

// Delete espera a que termine cualquier transacción en curso sobre el producto.
func (r *productRepo) Delete(ctx context.Context, id int64) error {
	if err := r.s.locks.acquire(ctx, id, r.s.lockWait); err != nil {
		return err
	}
	defer r.s.locks.release(id)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return domain.ErrNotFound
	}
	for k := range r.s.stock {
		if k.productID == id {
			return domain.ErrInUse
		}
	}
	for _, m := range r.s.entries {
		if m.ProductID == id {
			return domain.ErrInUse
		}
	}
	for _, m := range r.s.exits {
		if m.ProductID == id {
			return domain.ErrInUse
		}
	}
	for _, w := range r.s.warehouses {
		if w.AssignedProductID != nil && *w.AssignedProductID == id {
			return domain.ErrInUse
		}
	}
	delete(r.s.products, id)
	return nil
}

// ── Almacenes ─────────────────────────────────────────────────────────────────

type warehouseRepo struct{ s *Store }

func cloneWarehouse(w *entity.Warehouse) *entity.Warehouse {
	if w == nil {
		return nil
	}
	c := *w
	if w.AssignedProductID != nil {
		id := *w.AssignedProductID
		c.AssignedProductID = &id
	}
	return &c
}

func (r *warehouseRepo) assignedExists(w *entity.Warehouse) bool {
	if w.AssignedProductID == nil {
		return true
	}
	_, ok := r.s.products[*w.AssignedProductID]
	return ok
}

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.assignedExists(w) {
		return domain.ErrNotFound
	}
	r.s.warehouseSeq++
	now := r.s.now().UTC()
	w.ID = r.s.warehouseSeq
	w.CreatedAt, w.UpdatedAt = now, now
	r.s.warehouses[w.ID] = cloneWarehouse(w)
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id int64) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneWarehouse(r.s.warehouses[id]), nil
}

func (r *warehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.warehouses[w.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !r.assignedExists(w) {
		return domain.ErrNotFound
	}
	w.CreatedAt = cur.CreatedAt
	w.UpdatedAt = r.s.now().UTC()
	r.s.warehouses[w.ID] = cloneWarehouse(w)
	return nil
}

func (r *warehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Warehouse, 0, len(r.s.warehouses))
	for _, w := range r.s.warehouses {
		out = append(out, cloneWarehouse(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (r *warehouseRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.warehouses[id]; !ok {
		return domain.ErrNotFound
	}
	for k := range r.s.stock {
		if k.warehouseID == id {
			return domain.ErrInUse
		}
	}
	for _, m := range r.s.entries {
		if m.WarehouseID == id {
			return domain.ErrInUse
		}
	}
	delete(r.s.warehouses, id)
	return nil
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

type userRepo struct{ s *Store }

func cloneUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *userRepo) emailTaken(email string, exceptID int64) bool {
	for _, u := range r.s.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(u.Email, 0) {
		return domain.ErrEmailAlreadyExists
	}
	r.s.userSeq++
	now := r.s.now().UTC()
	u.ID = r.s.userSeq
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneUser(r.s.users[id]), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *userRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return domain.ErrEmailAlreadyExists
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.s.now().UTC()
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *userRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}
