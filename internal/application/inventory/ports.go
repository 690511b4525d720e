package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

// TxFunc recibe repositorios atados a una misma transacción.
type TxFunc func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
) error

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro camino (incluido panic).
// Los fallos reintentables del almacenamiento se devuelven envueltos en domain.ErrTransient.
type TxRunner interface {
	Run(ctx context.Context, fn TxFunc) error
}

// StockSummary existencia de un producto en todos sus almacenes.
type StockSummary struct {
	ProductID  int64             `json:"product_id"`
	Total      int64             `json:"total"`
	Rows       []entity.StockRow `json:"rows"`
	ComputedAt time.Time         `json:"computed_at"`
}

// StockCache caché opcional de resúmenes por producto. Se invalida tras cada movimiento confirmado.
// Cada producto lleva un contador de generación que Invalidate incrementa; un resumen leído antes
// de una invalidación no se guarda.
type StockCache interface {
	Get(ctx context.Context, productID int64) (*StockSummary, bool)
	// Generation se lee antes de consultar el libro.
	Generation(ctx context.Context, productID int64) (int64, error)
	// Set guarda el resumen solo si la generación sigue siendo gen.
	Set(ctx context.Context, summary *StockSummary, gen int64) error
	Invalidate(ctx context.Context, productID int64) error
}

// MovementEvent se publica después del commit de cada movimiento.
type MovementEvent struct {
	Type          string            `json:"type"` // entity.MovementTypeEntry | entity.MovementTypeExit
	TransactionID string            `json:"transaction_id"`
	MovementID    int64             `json:"movement_id"`
	ActorID       int64             `json:"actor_id"`
	ProductID     int64             `json:"product_id"`
	WarehouseID   int64             `json:"warehouse_id,omitempty"`
	Quantity      int64             `json:"quantity"`
	Deductions    []DeductionRecord `json:"deductions,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// DeductionRecord parte de una salida tomada de un almacén.
type DeductionRecord struct {
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int64 `json:"quantity"`
	Remaining   int64 `json:"remaining"`
}

// EventPublisher publica eventos de movimientos (Kafka u otro). Un error nunca revierte el movimiento.
type EventPublisher interface {
	Publish(ctx context.Context, event MovementEvent) error
}

// StockReportGenerator genera la representación PDF del reporte de existencias.
type StockReportGenerator interface {
	GenerateStockReport(ctx context.Context, title string, rows []*entity.StockRow, generatedAt time.Time) ([]byte, error)
}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) (*StockSummary, bool) { return nil, false }
func (nopCache) Generation(context.Context, int64) (int64, error) { return 0, nil }
func (nopCache) Set(context.Context, *StockSummary, int64) error  { return nil }
func (nopCache) Invalidate(context.Context, int64) error          { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, MovementEvent) error { return nil }
