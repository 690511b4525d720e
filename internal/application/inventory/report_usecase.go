package inventory

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

// csvHeader columnas del reporte de existencias.
var csvHeader = []string{"ID Stock", "Producto", "Almacen", "Cantidad"}

// ReportUseCase exporta el libro de existencias a CSV y PDF.
type ReportUseCase struct {
	stockRepo repository.StockRepository
	pdfGen    StockReportGenerator
	now       func() time.Time
}

// NewReportUseCase construye el caso de uso. pdfGen puede ser nil si no se exporta a PDF.
func NewReportUseCase(stockRepo repository.StockRepository, pdfGen StockReportGenerator) *ReportUseCase {
	return &ReportUseCase{stockRepo: stockRepo, pdfGen: pdfGen, now: time.Now}
}

// ExportCSV genera el CSV con una línea por fila del libro.
// "ID Stock" es la clave compuesta producto-almacén.
func (uc *ReportUseCase) ExportCSV(ctx context.Context) ([]byte, error) {
	rows, err := uc.stockRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("csv: escribir cabecera: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			StockKey(r),
			r.ProductName,
			r.WarehouseName,
			strconv.FormatInt(r.Quantity, 10),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("csv: escribir fila: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPDF genera el reporte de existencias en PDF.
func (uc *ReportUseCase) ExportPDF(ctx context.Context) ([]byte, error) {
	if uc.pdfGen == nil {
		return nil, fmt.Errorf("pdf: generador no configurado")
	}
	rows, err := uc.stockRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return uc.pdfGen.GenerateStockReport(ctx, "Reporte de existencias", rows, uc.now())
}

// StockKey identificador legible de una fila del libro.
func StockKey(r *entity.StockRow) string {
	return strconv.FormatInt(r.ProductID, 10) + "-" + strconv.FormatInt(r.WarehouseID, 10)
}
