package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	domaininv "github.com/jhoicas/inventrack-api/internal/domain/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
	"github.com/jhoicas/inventrack-api/pkg/logger"
)

// AccountingEngine es el único escritor del libro de stock y del registro de movimientos.
// Cada entrada o salida se ejecuta como una sola transacción (TxRunner): lectura con bloqueo de filas,
// cálculo de deltas, escritura de filas y alta del movimiento, con Commit o Rollback completo.
type AccountingEngine struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	stockRepo     repository.StockRepository
	movRepo       repository.MovementRepository

	cache      StockCache
	publisher  EventPublisher
	log        *logger.Logger
	maxRetries int
	lowStock   int64
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// Option configura el motor.
type Option func(*AccountingEngine)

// WithCache habilita la caché de resúmenes de stock.
func WithCache(c StockCache) Option {
	return func(e *AccountingEngine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithPublisher habilita la publicación de eventos tras el commit.
func WithPublisher(p EventPublisher) Option {
	return func(e *AccountingEngine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithLogger fija el logger del motor.
func WithLogger(l *logger.Logger) Option {
	return func(e *AccountingEngine) {
		if l != nil {
			e.log = l.Component("accounting_engine")
		}
	}
}

// WithMaxRetries número de reintentos ante domain.ErrTransient (0 = sin reintentos).
func WithMaxRetries(n int) Option {
	return func(e *AccountingEngine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithLowStockThreshold umbral de alertas de stock bajo.
func WithLowStockThreshold(n int64) Option {
	return func(e *AccountingEngine) { e.lowStock = n }
}

// WithRetryBackOff reemplaza la política de espera entre reintentos.
func WithRetryBackOff(fn func() backoff.BackOff) Option {
	return func(e *AccountingEngine) {
		if fn != nil {
			e.newBackOff = fn
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *AccountingEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewAccountingEngine construye el motor. Los repositorios sin tx se usan solo para lecturas.
func NewAccountingEngine(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	stockRepo repository.StockRepository,
	movRepo repository.MovementRepository,
	opts ...Option,
) *AccountingEngine {
	e := &AccountingEngine{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		stockRepo:     stockRepo,
		movRepo:       movRepo,
		cache:         nopCache{},
		publisher:     nopPublisher{},
		log:           logger.Nop(),
		maxRetries:    3,
		lowStock:      10,
		newBackOff:    defaultBackOff,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

// EntryInput entrada de mercancía a un almacén. ActorID llega ya autenticado.
type EntryInput struct {
	ActorID     int64
	WarehouseID int64
	ProductID   int64
	Quantity    int64
	Note        string
}

// ExitInput salida de un producto; no se elige almacén.
type ExitInput struct {
	ActorID   int64
	ProductID int64
	Quantity  int64
	Reason    string
}

// ExitResult movimiento creado más el reparte por almacén calculado en la misma tx.
type ExitResult struct {
	Movement   *entity.ExitMovement
	Deductions []domaininv.Deduction
}

// ParseQuantity convierte una cantidad recibida como decimal en un entero positivo.
// Cantidades no enteras, no positivas o fuera de rango devuelven domain.ErrInvalidQuantity.
func ParseQuantity(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, domain.ErrInvalidQuantity
	}
	return d.IntPart(), nil
}

// RecordEntry suma quantity a la fila (producto, almacén), creándola si no existe, y registra la entrada.
// Ambas escrituras son atómicas. Devuelve la entrada con los snapshots de producto y almacén.
func (e *AccountingEngine) RecordEntry(ctx context.Context, in EntryInput) (*entity.EntryMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.ActorID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	// Una vez iniciado, el movimiento termina (commit o fallo) aunque el llamador cancele.
	ctx = context.WithoutCancel(ctx)

	var mov *entity.EntryMovement
	err := e.runTx(ctx, entity.MovementTypeEntry, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		productRepo repository.ProductRepository,
		warehouseRepo repository.WarehouseRepository,
	) error {
		mov = nil
		product, err := resolveProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}
		warehouse, err := resolveWarehouse(ctx, warehouseRepo, in.WarehouseID)
		if err != nil {
			return err
		}

		txID := uuid.New().String()
		if _, err := stockRepo.ApplyDelta(ctx, in.ProductID, in.WarehouseID, in.Quantity, txID); err != nil {
			return err
		}
		m := &entity.EntryMovement{
			TransactionID: txID,
			ActorID:       in.ActorID,
			WarehouseID:   in.WarehouseID,
			ProductID:     in.ProductID,
			Quantity:      in.Quantity,
			Note:          in.Note,
			CreatedAt:     e.now().UTC(),
			Product:       product,
			Warehouse:     warehouse,
		}
		if err := movRepo.CreateEntry(ctx, m); err != nil {
			return err
		}
		mov = m
		return nil
	})
	if err != nil {
		e.logFailure(entity.MovementTypeEntry, in.ProductID, err)
		return nil, err
	}

	e.log.Info().
		Int64("movement_id", mov.ID).
		Str("transaction_id", mov.TransactionID).
		Int64("product_id", mov.ProductID).
		Int64("warehouse_id", mov.WarehouseID).
		Int64("quantity", mov.Quantity).
		Msg("entrada registrada")

	e.afterCommit(ctx, mov.ProductID, MovementEvent{
		Type:          entity.MovementTypeEntry,
		TransactionID: mov.TransactionID,
		MovementID:    mov.ID,
		ActorID:       mov.ActorID,
		ProductID:     mov.ProductID,
		WarehouseID:   mov.WarehouseID,
		Quantity:      mov.Quantity,
		OccurredAt:    mov.CreatedAt,
	})
	return mov, nil
}

// RecordExit descuenta quantity del stock total del producto.
// Bloquea todas las filas del producto en orden de almacén, verifica que el total alcance
// y reparte la salida con domaininv.PlanDeduction (almacén de menor id primero).
// Si no alcanza devuelve domain.ErrInsufficientStock y no modifica nada.
func (e *AccountingEngine) RecordExit(ctx context.Context, in ExitInput) (*ExitResult, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.ActorID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	ctx = context.WithoutCancel(ctx)

	var result *ExitResult
	err := e.runTx(ctx, entity.MovementTypeExit, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		productRepo repository.ProductRepository,
		_ repository.WarehouseRepository,
	) error {
		result = nil
		product, err := resolveProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}

		rows, err := stockRepo.ListByProductForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		plan, err := domaininv.PlanDeduction(rows, in.Quantity)
		if err != nil {
			return err
		}

		txID := uuid.New().String()
		for _, d := range plan {
			if _, err := stockRepo.ApplyDelta(ctx, in.ProductID, d.WarehouseID, -d.Quantity, txID); err != nil {
				return err
			}
		}
		m := &entity.ExitMovement{
			TransactionID: txID,
			ActorID:       in.ActorID,
			ProductID:     in.ProductID,
			Quantity:      in.Quantity,
			Reason:        in.Reason,
			CreatedAt:     e.now().UTC(),
			Product:       product,
		}
		if err := movRepo.CreateExit(ctx, m); err != nil {
			return err
		}
		result = &ExitResult{Movement: m, Deductions: plan}
		return nil
	})
	if err != nil {
		e.logFailure(entity.MovementTypeExit, in.ProductID, err)
		return nil, err
	}

	mov := result.Movement
	records := make([]DeductionRecord, 0, len(result.Deductions))
	for _, d := range result.Deductions {
		records = append(records, DeductionRecord{WarehouseID: d.WarehouseID, Quantity: d.Quantity, Remaining: d.After})
	}
	e.log.Info().
		Int64("movement_id", mov.ID).
		Str("transaction_id", mov.TransactionID).
		Int64("product_id", mov.ProductID).
		Int64("quantity", mov.Quantity).
		Int("warehouses", len(records)).
		Msg("salida registrada")

	e.afterCommit(ctx, mov.ProductID, MovementEvent{
		Type:          entity.MovementTypeExit,
		TransactionID: mov.TransactionID,
		MovementID:    mov.ID,
		ActorID:       mov.ActorID,
		ProductID:     mov.ProductID,
		Quantity:      mov.Quantity,
		Deductions:    records,
		OccurredAt:    mov.CreatedAt,
	})
	return result, nil
}

// runTx ejecuta fn en una transacción y la repite mientras el fallo sea transitorio,
// hasta maxRetries reintentos. Agotados, devuelve domain.ErrUnavailable.
func (e *AccountingEngine) runTx(ctx context.Context, op string, fn TxFunc) error {
	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := e.txRunner.Run(ctx, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, domain.ErrTransient):
			e.log.Warn().Err(err).Str("op", op).Int("attempt", attempts).Msg("fallo transitorio en transacción")
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(e.newBackOff()), backoff.WithMaxTries(uint(e.maxRetries+1)))

	if err != nil && errors.Is(err, domain.ErrTransient) {
		return fmt.Errorf("%w: %s tras %d intentos: %w", domain.ErrUnavailable, op, attempts, err)
	}
	return err
}

func (e *AccountingEngine) logFailure(op string, productID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrNegativeQuantity):
		// Falla del pre-chequeo del motor: alerta, nunca se silencia.
		e.log.Error().Err(err).Str("op", op).Int64("product_id", productID).
			Bool("alert", true).Msg("invariante del libro violada")
	case errors.Is(err, domain.ErrUnavailable):
		e.log.Error().Err(err).Str("op", op).Int64("product_id", productID).Msg("reintentos agotados")
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidQuantity):
		e.log.Debug().Err(err).Str("op", op).Int64("product_id", productID).Msg("movimiento rechazado")
	default:
		e.log.Error().Err(err).Str("op", op).Int64("product_id", productID).Msg("movimiento fallido")
	}
}

// afterCommit invalida la caché y publica el evento. Sus errores solo se registran.
func (e *AccountingEngine) afterCommit(ctx context.Context, productID int64, ev MovementEvent) {
	if err := e.cache.Invalidate(ctx, productID); err != nil {
		e.log.Warn().Err(err).Int64("product_id", productID).Msg("invalidar caché de stock")
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("type", ev.Type).Int64("movement_id", ev.MovementID).Msg("publicar evento de movimiento")
	}
}

func resolveProduct(ctx context.Context, repo repository.ProductRepository, id int64) (*entity.Product, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("producto %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func resolveWarehouse(ctx context.Context, repo repository.WarehouseRepository, id int64) (*entity.Warehouse, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	w, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("almacén %d: %w", id, domain.ErrNotFound)
	}
	return w, nil
}
