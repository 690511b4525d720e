package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/memory"
)

const actor int64 = 1

type fixture struct {
	store  *memory.Store
	engine *inventory.AccountingEngine
}

func newFixture(t *testing.T, opts ...inventory.Option) *fixture {
	t.Helper()
	s := memory.New()
	opts = append([]inventory.Option{
		inventory.WithRetryBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	e := inventory.NewAccountingEngine(
		memory.NewTxRunner(s),
		s.Products(), s.Warehouses(), s.Stock(), s.Movements(),
		opts...,
	)
	return &fixture{store: s, engine: e}
}

func (f *fixture) product(t *testing.T, barcode string) *entity.Product {
	t.Helper()
	p := &entity.Product{Barcode: barcode, Name: "Producto " + barcode, Price: decimal.RequireFromString("1500.50")}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *fixture) warehouse(t *testing.T, name string) *entity.Warehouse {
	t.Helper()
	w := &entity.Warehouse{Name: name}
	require.NoError(t, f.store.Warehouses().Create(context.Background(), w))
	return w
}

func (f *fixture) enter(t *testing.T, productID, warehouseID, qty int64) {
	t.Helper()
	_, err := f.engine.RecordEntry(context.Background(), inventory.EntryInput{
		ActorID: actor, ProductID: productID, WarehouseID: warehouseID, Quantity: qty,
	})
	require.NoError(t, err)
}

func (f *fixture) qty(t *testing.T, productID, warehouseID int64) int64 {
	t.Helper()
	row, err := f.store.Stock().Get(context.Background(), productID, warehouseID)
	require.NoError(t, err)
	if row == nil {
		return 0
	}
	return row.Quantity
}

func TestRecordEntry_CreatesRowAndMovement(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "750100")
	w := f.warehouse(t, "Central")

	mov, err := f.engine.RecordEntry(context.Background(), inventory.EntryInput{
		ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 12, Note: "compra",
	})
	require.NoError(t, err)

	assert.Positive(t, mov.ID)
	assert.NotEmpty(t, mov.TransactionID)
	assert.Equal(t, int64(12), mov.Quantity)
	require.NotNil(t, mov.Product)
	require.NotNil(t, mov.Warehouse)
	assert.Equal(t, p.Name, mov.Product.Name)
	assert.Equal(t, "Central", mov.Warehouse.Name)

	row, err := f.store.Stock().Get(context.Background(), p.ID, w.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(12), row.Quantity)
	assert.Equal(t, mov.TransactionID, row.LastTransactionID)
}

func TestRecordEntry_QuantityIsSumOfEntries(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	for _, q := range []int64{3, 7, 15} {
		f.enter(t, p.ID, w.ID, q)
	}
	assert.Equal(t, int64(25), f.qty(t, p.ID, w.ID))

	entries, err := f.store.Movements().ListEntries(context.Background(), repository.MovementFilter{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	var sum int64
	for i, m := range entries {
		sum += m.Quantity
		if i > 0 {
			assert.Greater(t, m.ID, entries[i-1].ID)
		}
	}
	assert.Equal(t, int64(25), sum)
}

func TestRecordEntry_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	tests := []struct {
		name string
		in   inventory.EntryInput
		want error
	}{
		{"cantidad cero", inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 0}, domain.ErrInvalidQuantity},
		{"cantidad negativa", inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: -4}, domain.ErrInvalidQuantity},
		{"producto inexistente", inventory.EntryInput{ActorID: actor, ProductID: 999, WarehouseID: w.ID, Quantity: 1}, domain.ErrNotFound},
		{"almacén inexistente", inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: 999, Quantity: 1}, domain.ErrNotFound},
		{"sin actor", inventory.EntryInput{ProductID: p.ID, WarehouseID: w.ID, Quantity: 1}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mov, err := f.engine.RecordEntry(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, mov)
		})
	}

	assert.Equal(t, int64(0), f.qty(t, p.ID, w.ID))
	entries, err := f.store.Movements().ListEntries(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordExit_DeductsInWarehouseOrder(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w1 := f.warehouse(t, "W1")
	w2 := f.warehouse(t, "W2")
	// Se carga primero el almacén de mayor id: el orden de llegada no influye.
	f.enter(t, p.ID, w2.ID, 5)
	f.enter(t, p.ID, w1.ID, 5)

	res, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{
		ActorID: actor, ProductID: p.ID, Quantity: 7, Reason: "venta",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.qty(t, p.ID, w1.ID))
	assert.Equal(t, int64(3), f.qty(t, p.ID, w2.ID))

	require.Len(t, res.Deductions, 2)
	assert.Equal(t, w1.ID, res.Deductions[0].WarehouseID)
	assert.Equal(t, int64(5), res.Deductions[0].Quantity)
	assert.Equal(t, w2.ID, res.Deductions[1].WarehouseID)
	assert.Equal(t, int64(2), res.Deductions[1].Quantity)
	assert.Equal(t, int64(3), res.Deductions[1].After)

	assert.Equal(t, int64(7), res.Movement.Quantity)
	assert.Equal(t, "venta", res.Movement.Reason)
	require.NotNil(t, res.Movement.Product)

	row, err := f.store.Stock().Get(context.Background(), p.ID, w2.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Movement.TransactionID, row.LastTransactionID)
}

func TestRecordExit_LargeFirstWarehouse(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w1 := f.warehouse(t, "W1")
	w2 := f.warehouse(t, "W2")
	f.enter(t, p.ID, w1.ID, 50)
	f.enter(t, p.ID, w2.ID, 10)

	_, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 55})
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.qty(t, p.ID, w1.ID))
	assert.Equal(t, int64(5), f.qty(t, p.ID, w2.ID))
}

func TestRecordExit_InsufficientStockLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w1 := f.warehouse(t, "W1")
	w2 := f.warehouse(t, "W2")
	f.enter(t, p.ID, w1.ID, 4)
	f.enter(t, p.ID, w2.ID, 2)

	res, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 7})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, res)

	assert.Equal(t, int64(4), f.qty(t, p.ID, w1.ID))
	assert.Equal(t, int64(2), f.qty(t, p.ID, w2.ID))
	exits, err := f.store.Movements().ListExits(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, exits)
}

func TestRecordExit_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")

	_, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Producto sin filas en el libro.
	_, err = f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestRecordEntry_ConcurrentNoLostUpdates(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	const workers = 64
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := f.engine.RecordEntry(context.Background(), inventory.EntryInput{
				ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 2,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(2*workers), f.qty(t, p.ID, w.ID))
	entries, err := f.store.Movements().ListEntries(context.Background(), repository.MovementFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, entries, workers)
}

func TestRecordExit_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w1 := f.warehouse(t, "W1")
	w2 := f.warehouse(t, "W2")
	f.enter(t, p.ID, w1.ID, 6)
	f.enter(t, p.ID, w2.ID, 4)

	var (
		mu           sync.Mutex
		ok, rejected int
	)
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, rejected)
	assert.Equal(t, int64(0), f.qty(t, p.ID, w1.ID))
	assert.Equal(t, int64(0), f.qty(t, p.ID, w2.ID))
}

func TestRecordEntry_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.RecordEntry(ctx, inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.qty(t, p.ID, w.ID))
}

func TestRecordEntry_OverflowIsInvalidQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")
	f.enter(t, p.ID, w.ID, math.MaxInt64)

	_, err := f.engine.RecordEntry(context.Background(), inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.NotErrorIs(t, err, domain.ErrNegativeQuantity)
	assert.Equal(t, int64(math.MaxInt64), f.qty(t, p.ID, w.ID))

	entries, err := f.store.Movements().ListEntries(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordExit_TotalAboveInt64DoesNotWrap(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w1 := f.warehouse(t, "W1")
	w2 := f.warehouse(t, "W2")
	f.enter(t, p.ID, w1.ID, math.MaxInt64)
	f.enter(t, p.ID, w2.ID, 1)

	res, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, res.Deductions, 1)
	assert.Equal(t, w1.ID, res.Deductions[0].WarehouseID)
	assert.Equal(t, int64(math.MaxInt64-1), f.qty(t, p.ID, w1.ID))
	assert.Equal(t, int64(1), f.qty(t, p.ID, w2.ID))
}

func TestMovements_ListedCopiesAreIsolated(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")
	f.enter(t, p.ID, w.ID, 5)

	first, err := f.store.Movements().ListEntries(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Quantity = 999
	first[0].Product.Name = "alterado"

	again, err := f.store.Movements().ListEntries(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), again[0].Quantity)
	assert.Equal(t, p.Name, again[0].Product.Name)
}

// flakyRunner falla con domain.ErrTransient las primeras n veces.
type flakyRunner struct {
	inner    inventory.TxRunner
	failures int
	calls    int
}

func (r *flakyRunner) Run(ctx context.Context, fn inventory.TxFunc) error {
	r.calls++
	if r.calls <= r.failures {
		return domain.ErrTransient
	}
	return r.inner.Run(ctx, fn)
}

func newFlakyEngine(s *memory.Store, runner inventory.TxRunner, maxRetries int) *inventory.AccountingEngine {
	return inventory.NewAccountingEngine(runner,
		s.Products(), s.Warehouses(), s.Stock(), s.Movements(),
		inventory.WithMaxRetries(maxRetries),
		inventory.WithRetryBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func TestRecordEntry_RetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	runner := &flakyRunner{inner: memory.NewTxRunner(f.store), failures: 2}
	engine := newFlakyEngine(f.store, runner, 3)

	_, err := engine.RecordEntry(context.Background(), inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, int64(1), f.qty(t, p.ID, w.ID))
}

func TestRecordEntry_UnavailableAfterRetries(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	runner := &flakyRunner{inner: memory.NewTxRunner(f.store), failures: 10}
	engine := newFlakyEngine(f.store, runner, 2)

	_, err := engine.RecordEntry(context.Background(), inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, int64(0), f.qty(t, p.ID, w.ID))
}

func TestRecordExit_DomainErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A")

	runner := &flakyRunner{inner: memory.NewTxRunner(f.store)}
	engine := newFlakyEngine(f.store, runner, 5)

	_, err := engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, runner.calls)
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []int64
}

func (c *recordingCache) Get(context.Context, int64) (*inventory.StockSummary, bool) { return nil, false }
func (c *recordingCache) Generation(context.Context, int64) (int64, error)           { return 0, nil }
func (c *recordingCache) Set(context.Context, *inventory.StockSummary, int64) error { return nil }
func (c *recordingCache) Invalidate(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, productID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.MovementEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev inventory.MovementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func TestAfterCommit_InvalidatesCacheAndPublishes(t *testing.T) {
	cache := &recordingCache{}
	pub := &recordingPublisher{}
	f := newFixture(t, inventory.WithCache(cache), inventory.WithPublisher(pub))
	p := f.product(t, "A")
	w1 := f.warehouse(t, "W1")
	w2 := f.warehouse(t, "W2")
	f.enter(t, p.ID, w1.ID, 2)
	f.enter(t, p.ID, w2.ID, 2)

	_, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, []int64{p.ID, p.ID, p.ID}, cache.invalidated)
	require.Len(t, pub.events, 3)
	exit := pub.events[2]
	assert.Equal(t, entity.MovementTypeExit, exit.Type)
	assert.Equal(t, int64(3), exit.Quantity)
	assert.Equal(t, []inventory.DeductionRecord{
		{WarehouseID: w1.ID, Quantity: 2, Remaining: 0},
		{WarehouseID: w2.ID, Quantity: 1, Remaining: 1},
	}, exit.Deductions)
}

func TestAfterCommit_NothingPublishedOnFailure(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, inventory.WithPublisher(pub))
	p := f.product(t, "A")

	_, err := f.engine.RecordExit(context.Background(), inventory.ExitInput{ActorID: actor, ProductID: p.ID, Quantity: 1})
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestAfterCommit_PublishErrorDoesNotFailMovement(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker caído")}
	f := newFixture(t, inventory.WithPublisher(pub))
	p := f.product(t, "A")
	w := f.warehouse(t, "W1")

	_, err := f.engine.RecordEntry(context.Background(), inventory.EntryInput{ActorID: actor, ProductID: p.ID, WarehouseID: w.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.qty(t, p.ID, w.ID))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"250", 250, false},
		{"3.000", 3, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"1.5", 0, true},
		{"9223372036854775808", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := inventory.ParseQuantity(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
