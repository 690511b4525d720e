package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo. Barcode es único en todo el catálogo.
// El stock no vive aquí: se maneja por almacén en StockRow.
type Product struct {
	ID        int64
	Barcode   string
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
