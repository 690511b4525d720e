package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryRequest body para POST /api/inventory/entry.
// Quantity llega como número JSON y debe ser un entero positivo.
type EntryRequest struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"quantity" validate:"qty"`
	Note        string          `json:"note" validate:"max=500"`
}

// ExitRequest body para POST /api/inventory/exit. No lleva almacén.
type ExitRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"qty"`
	Reason    string          `json:"reason" validate:"max=500"`
}

// EntryResponse entrada registrada con snapshots de producto y almacén.
type EntryResponse struct {
	ID            int64              `json:"id"`
	TransactionID string             `json:"transaction_id"`
	UserID        int64              `json:"user_id"`
	ProductID     int64              `json:"product_id"`
	WarehouseID   int64              `json:"warehouse_id"`
	Quantity      int64              `json:"quantity"`
	Note          string             `json:"note,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	Product       *ProductResponse   `json:"product,omitempty"`
	Warehouse     *WarehouseResponse `json:"warehouse,omitempty"`
}

// DeductionResponse parte de una salida descontada de un almacén.
type DeductionResponse struct {
	WarehouseID int64 `json:"warehouse_id"`
	Previous    int64 `json:"previous"`
	Deducted    int64 `json:"deducted"`
	Remaining   int64 `json:"remaining"`
}

// ExitResponse salida registrada. Deductions solo viaja en la respuesta de POST /exit.
type ExitResponse struct {
	ID            int64               `json:"id"`
	TransactionID string              `json:"transaction_id"`
	UserID        int64               `json:"user_id"`
	ProductID     int64               `json:"product_id"`
	Quantity      int64               `json:"quantity"`
	Reason        string              `json:"reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Product       *ProductResponse    `json:"product,omitempty"`
	Deductions    []DeductionResponse `json:"deductions,omitempty"`
}

// StockRowResponse existencia de un producto en un almacén.
type StockRowResponse struct {
	ID                string    `json:"id"`
	ProductID         int64     `json:"product_id"`
	WarehouseID       int64     `json:"warehouse_id"`
	ProductName       string    `json:"product_name,omitempty"`
	WarehouseName     string    `json:"warehouse_name,omitempty"`
	Quantity          int64     `json:"quantity"`
	LastTransactionID string    `json:"last_transaction_id,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProductStockResponse existencias de un producto en todos sus almacenes.
type ProductStockResponse struct {
	ProductID int64              `json:"product_id"`
	Total     int64              `json:"total"`
	Rows      []StockRowResponse `json:"rows"`
}

// LowStockResponse filas bajo el umbral de alerta.
type LowStockResponse struct {
	Threshold int64              `json:"threshold"`
	Items     []StockRowResponse `json:"items"`
}
