package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventrack-api/internal/application/dto"
	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/application/usecase"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

// InventoryHandler entradas, salidas, consultas del libro y reportes (protegido).
type InventoryHandler struct {
	engine *inventory.AccountingEngine
	query  *inventory.StockQueryUseCase
	report *inventory.ReportUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.AccountingEngine, query *inventory.StockQueryUseCase, report *inventory.ReportUseCase) *InventoryHandler {
	return &InventoryHandler{engine: engine, query: query, report: report}
}

// RecordEntry godoc
// @Summary      Registrar entrada
// @Description  Suma la cantidad a la existencia del producto en el almacén indicado.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EntryRequest  true  "product_id, warehouse_id, quantity"
// @Success      201   {object}  dto.EntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/entry [post]
func (h *InventoryHandler) RecordEntry(c *fiber.Ctx) error {
	var in dto.EntryRequest
	if e := decodeBody(c, &in); e != nil {
		return invalid(c, e)
	}
	qty, err := inventory.ParseQuantity(in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	mov, err := h.engine.RecordEntry(c.UserContext(), inventory.EntryInput{
		ActorID:     GetUserID(c),
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		Quantity:    qty,
		Note:        in.Note,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toEntryResponse(mov))
}

// RecordExit godoc
// @Summary      Registrar salida
// @Description  Descuenta la cantidad del stock global del producto, almacén por almacén en orden de id.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExitRequest  true  "product_id, quantity"
// @Success      201   {object}  dto.ExitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/exit [post]
func (h *InventoryHandler) RecordExit(c *fiber.Ctx) error {
	var in dto.ExitRequest
	if e := decodeBody(c, &in); e != nil {
		return invalid(c, e)
	}
	qty, err := inventory.ParseQuantity(in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.engine.RecordExit(c.UserContext(), inventory.ExitInput{
		ActorID:   GetUserID(c),
		ProductID: in.ProductID,
		Quantity:  qty,
		Reason:    in.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := toExitResponse(res.Movement)
	for _, d := range res.Deductions {
		out.Deductions = append(out.Deductions, dto.DeductionResponse{
			WarehouseID: d.WarehouseID,
			Previous:    d.Before,
			Deducted:    d.Quantity,
			Remaining:   d.After,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListStock godoc
// @Summary      Existencias
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StockRowResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	rows, err := h.query.ListStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockRows(rows))
}

// ProductStock godoc
// @Summary      Existencias de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  int  true  "ID del producto"
// @Success      200  {object}  dto.ProductStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id} [get]
func (h *InventoryHandler) ProductStock(c *fiber.Ctx) error {
	productID, ok := paramID(c, "product_id")
	if !ok {
		return invalidID(c, "product_id")
	}
	s, err := h.query.ProductStock(c.UserContext(), productID)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ProductStockResponse{
		ProductID: s.ProductID,
		Total:     s.Total,
		Rows:      make([]dto.StockRowResponse, 0, len(s.Rows)),
	}
	for i := range s.Rows {
		out.Rows = append(out.Rows, toStockRow(&s.Rows[i]))
	}
	return c.JSON(out)
}

// GetRow godoc
// @Summary      Existencia de un producto en un almacén
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path  int  true  "ID del producto"
// @Param        warehouse_id  path  int  true  "ID del almacén"
// @Success      200  {object}  dto.StockRowResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id}/{warehouse_id} [get]
func (h *InventoryHandler) GetRow(c *fiber.Ctx) error {
	productID, ok := paramID(c, "product_id")
	if !ok {
		return invalidID(c, "product_id")
	}
	warehouseID, ok := paramID(c, "warehouse_id")
	if !ok {
		return invalidID(c, "warehouse_id")
	}
	row, err := h.query.GetRow(c.UserContext(), productID, warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockRow(row))
}

// ListEntries godoc
// @Summary      Historial de entradas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  int  false  "Filtrar por producto"
// @Param        warehouse_id  query  int  false  "Filtrar por almacén"
// @Param        limit         query  int  false  "Límite"  default(50)
// @Param        offset        query  int  false  "Offset"  default(0)
// @Success      200  {array}  dto.EntryResponse
// @Router       /api/inventory/movements/entries [get]
func (h *InventoryHandler) ListEntries(c *fiber.Ctx) error {
	list, err := h.query.ListEntries(c.UserContext(), movementFilter(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.EntryResponse, 0, len(list))
	for _, m := range list {
		out = append(out, *toEntryResponse(m))
	}
	return c.JSON(out)
}

// ListExits godoc
// @Summary      Historial de salidas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  int  false  "Filtrar por producto"
// @Param        limit       query  int  false  "Límite"  default(50)
// @Param        offset      query  int  false  "Offset"  default(0)
// @Success      200  {array}  dto.ExitResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/exits [get]
func (h *InventoryHandler) ListExits(c *fiber.Ctx) error {
	list, err := h.query.ListExits(c.UserContext(), movementFilter(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ExitResponse, 0, len(list))
	for _, m := range list {
		out = append(out, *toExitResponse(m))
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Alertas de stock bajo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.LowStockResponse
// @Router       /api/inventory/alerts [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	rows, err := h.query.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.LowStockResponse{Threshold: h.query.LowStockThreshold(), Items: toStockRows(rows)})
}

// ExportCSV godoc
// @Summary      Exportar existencias a CSV
// @Tags         inventory
// @Security     Bearer
// @Produce      text/csv
// @Success      200  {file}  file
// @Router       /api/inventory/export/csv [get]
func (h *InventoryHandler) ExportCSV(c *fiber.Ctx) error {
	body, err := h.report.ExportCSV(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, attachment("csv"))
	return c.Send(body)
}

// ExportPDF godoc
// @Summary      Exportar existencias a PDF
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}  file
// @Router       /api/inventory/export/pdf [get]
func (h *InventoryHandler) ExportPDF(c *fiber.Ctx) error {
	body, err := h.report.ExportPDF(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, attachment("pdf"))
	return c.Send(body)
}

func attachment(ext string) string {
	return `attachment; filename="existencias_` + time.Now().Format("20060102") + "." + ext + `"`
}

func movementFilter(c *fiber.Ctx) repository.MovementFilter {
	return repository.MovementFilter{
		ProductID:   int64(c.QueryInt("product_id", 0)),
		WarehouseID: int64(c.QueryInt("warehouse_id", 0)),
		Limit:       c.QueryInt("limit", 0),
		Offset:      c.QueryInt("offset", 0),
	}
}

// ── mapeo a DTOs ──────────────────────────────────────────────────────────────

func toEntryResponse(m *entity.EntryMovement) *dto.EntryResponse {
	out := &dto.EntryResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		UserID:        m.ActorID,
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		Quantity:      m.Quantity,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
	if m.Product != nil {
		out.Product = usecase.ToProductResponse(m.Product)
	}
	if m.Warehouse != nil {
		out.Warehouse = usecase.ToWarehouseResponse(m.Warehouse)
	}
	return out
}

func toExitResponse(m *entity.ExitMovement) *dto.ExitResponse {
	out := &dto.ExitResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		UserID:        m.ActorID,
		ProductID:     m.ProductID,
		Quantity:      m.Quantity,
		Reason:        m.Reason,
		CreatedAt:     m.CreatedAt,
	}
	if m.Product != nil {
		out.Product = usecase.ToProductResponse(m.Product)
	}
	return out
}

func toStockRow(r *entity.StockRow) dto.StockRowResponse {
	return dto.StockRowResponse{
		ID:                inventory.StockKey(r),
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		ProductName:       r.ProductName,
		WarehouseName:     r.WarehouseName,
		Quantity:          r.Quantity,
		LastTransactionID: r.LastTransactionID,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toStockRows(rows []*entity.StockRow) []dto.StockRowResponse {
	out := make([]dto.StockRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toStockRow(r))
	}
	return out
}

