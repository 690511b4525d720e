package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	domaininv "github.com/jhoicas/inventrack-api/internal/domain/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
	"github.com/jhoicas/inventrack-api/pkg/logger"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

// StockQueryUseCase lecturas del libro y del registro de movimientos. No escribe nunca.
type StockQueryUseCase struct {
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	stockRepo     repository.StockRepository
	movRepo       repository.MovementRepository
	cache         StockCache
	lowStock      int64
	log           *logger.Logger
	now           func() time.Time
}

// NewStockQueryUseCase construye el caso de uso. cache puede ser nil.
func NewStockQueryUseCase(
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	stockRepo repository.StockRepository,
	movRepo repository.MovementRepository,
	cache StockCache,
	lowStockThreshold int64,
	log *logger.Logger,
) *StockQueryUseCase {
	if cache == nil {
		cache = nopCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockQueryUseCase{
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		stockRepo:     stockRepo,
		movRepo:       movRepo,
		cache:         cache,
		lowStock:      lowStockThreshold,
		log:           log.Component("stock_query"),
		now:           time.Now,
	}
}

// LowStockThreshold umbral configurado para alertas.
func (uc *StockQueryUseCase) LowStockThreshold() int64 { return uc.lowStock }

// GetRow devuelve la existencia de un producto en un almacén.
// Si producto y almacén existen pero la fila nunca se creó, devuelve una fila en cero.
func (uc *StockQueryUseCase) GetRow(ctx context.Context, productID, warehouseID int64) (*entity.StockRow, error) {
	if _, err := resolveProduct(ctx, uc.productRepo, productID); err != nil {
		return nil, err
	}
	if _, err := resolveWarehouse(ctx, uc.warehouseRepo, warehouseID); err != nil {
		return nil, err
	}
	row, err := uc.stockRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &entity.StockRow{ProductID: productID, WarehouseID: warehouseID}, nil
	}
	return row, nil
}

// ProductStock devuelve las filas del producto y su total. Usa la caché si hay una entrada vigente.
// El producto se resuelve siempre en el catálogo, aunque haya resumen en caché.
func (uc *StockQueryUseCase) ProductStock(ctx context.Context, productID int64) (*StockSummary, error) {
	if _, err := resolveProduct(ctx, uc.productRepo, productID); err != nil {
		return nil, err
	}
	if s, ok := uc.cache.Get(ctx, productID); ok {
		return s, nil
	}
	gen, genErr := uc.cache.Generation(ctx, productID)
	if genErr != nil {
		uc.log.Warn().Err(genErr).Int64("product_id", productID).Msg("leer generación de caché")
	}
	rows, err := uc.stockRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	summary := &StockSummary{
		ProductID:  productID,
		Total:      domaininv.TotalOnHand(rows),
		Rows:       make([]entity.StockRow, 0, len(rows)),
		ComputedAt: uc.now().UTC(),
	}
	for _, r := range rows {
		summary.Rows = append(summary.Rows, *r)
	}
	if genErr != nil {
		return summary, nil
	}
	if err := uc.cache.Set(ctx, summary, gen); err != nil {
		uc.log.Warn().Err(err).Int64("product_id", productID).Msg("guardar resumen en caché")
	}
	return summary, nil
}

// ListStock todas las filas del libro con nombres resueltos.
func (uc *StockQueryUseCase) ListStock(ctx context.Context) ([]*entity.StockRow, error) {
	return uc.stockRepo.ListAll(ctx)
}

// LowStock filas con cantidad menor al umbral configurado.
func (uc *StockQueryUseCase) LowStock(ctx context.Context) ([]*entity.StockRow, error) {
	return uc.stockRepo.ListBelow(ctx, uc.lowStock)
}

// ListEntries historial de entradas, en orden de inserción.
func (uc *StockQueryUseCase) ListEntries(ctx context.Context, filter repository.MovementFilter) ([]*entity.EntryMovement, error) {
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	return uc.movRepo.ListEntries(ctx, f)
}

// ListExits historial de salidas, en orden de inserción.
func (uc *StockQueryUseCase) ListExits(ctx context.Context, filter repository.MovementFilter) ([]*entity.ExitMovement, error) {
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	if f.WarehouseID != 0 {
		return nil, fmt.Errorf("las salidas no registran almacén: %w", domain.ErrInvalidInput)
	}
	return uc.movRepo.ListExits(ctx, f)
}

func normalizeFilter(f repository.MovementFilter) (repository.MovementFilter, error) {
	if f.ProductID < 0 || f.WarehouseID < 0 || f.Offset < 0 || f.Limit < 0 {
		return f, domain.ErrInvalidInput
	}
	if f.Limit == 0 {
		f.Limit = defaultMovementLimit
	}
	if f.Limit > maxMovementLimit {
		f.Limit = maxMovementLimit
	}
	return f, nil
}
