package inventory

import (
	"math"
	"sort"

	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
)

// Deduction es la parte de una salida que se descuenta de un almacén.
type Deduction struct {
	WarehouseID int64
	Before      int64
	Quantity    int64
	After       int64
}

// TotalOnHand suma la existencia de todas las filas. Satura en math.MaxInt64 en vez de desbordar.
func TotalOnHand(rows []*entity.StockRow) int64 {
	var total int64
	for _, r := range rows {
		if r == nil || r.Quantity <= 0 {
			continue
		}
		if total > math.MaxInt64-r.Quantity {
			return math.MaxInt64
		}
		total += r.Quantity
	}
	return total
}

// PlanDeduction reparte una salida sobre las filas de un producto (servicio de dominio).
// Recorre los almacenes por id ascendente y toma min(existencia, restante) de cada uno hasta cubrir
// la cantidad; las filas en cero se saltan. Si el total no alcanza devuelve ErrInsufficientStock
// sin plan parcial. El orden de las filas de entrada no altera el resultado.
func PlanDeduction(rows []*entity.StockRow, quantity int64) ([]Deduction, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if TotalOnHand(rows) < quantity {
		return nil, domain.ErrInsufficientStock
	}

	ordered := make([]*entity.StockRow, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].WarehouseID < ordered[j].WarehouseID
	})

	remaining := quantity
	plan := make([]Deduction, 0, len(ordered))
	for _, r := range ordered {
		if remaining == 0 {
			break
		}
		if r.Quantity <= 0 {
			continue
		}
		take := min(r.Quantity, remaining)
		plan = append(plan, Deduction{
			WarehouseID: r.WarehouseID,
			Before:      r.Quantity,
			Quantity:    take,
			After:       r.Quantity - take,
		})
		remaining -= take
	}
	return plan, nil
}
