package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementTypeEntry = "entry"
	MovementTypeExit  = "exit"
)

// EntryMovement registra una entrada de mercancía a un almacén concreto. Inmutable una vez creado.
type EntryMovement struct {
	ID            int64
	TransactionID string
	ActorID       int64
	WarehouseID   int64
	ProductID     int64
	Quantity      int64
	Note          string
	CreatedAt     time.Time

	// Snapshots resueltos al momento de la consulta.
	Product   *Product
	Warehouse *Warehouse
}

// ExitMovement registra una salida de un producto. No referencia almacén: la salida se descuenta
// del stock global del producto, repartida por orden de almacén.
type ExitMovement struct {
	ID            int64
	TransactionID string
	ActorID       int64
	ProductID     int64
	Quantity      int64
	Reason        string
	CreatedAt     time.Time

	Product *Product
}
