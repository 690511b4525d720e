package entity

import "time"

// StockRow es la existencia de un producto en un almacén (fila del libro de stock).
// Se crea de forma perezosa con la primera entrada; Quantity nunca es negativa.
type StockRow struct {
	ProductID   int64
	WarehouseID int64
	Quantity    int64
	// LastTransactionID es la transacción del movimiento que tocó la fila por última vez.
	LastTransactionID string
	UpdatedAt         time.Time

	// Nombres resueltos solo en lecturas de reporte (ListAll / ListBelow).
	ProductName   string
	WarehouseName string
}
