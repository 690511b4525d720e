package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
)

func TestFormatThousands(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1.000",
		25000:    "25.000",
		1000000:  "1.000.000",
		-1234567: "-1.234.567",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatThousands(in))
	}
}

func TestGenerateStockReport(t *testing.T) {
	g := NewMarotoStockReport("inventrack")
	rows := []*entity.StockRow{
		{ProductID: 1, WarehouseID: 1, Quantity: 1200, ProductName: "Arroz", WarehouseName: "Central"},
		{ProductID: 1, WarehouseID: 2, Quantity: 0, ProductName: "Arroz", WarehouseName: "Norte"},
	}
	doc, err := g.GenerateStockReport(context.Background(), "Reporte de existencias", rows, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, doc)
	assert.Equal(t, "%PDF", string(doc[:4]))
}
