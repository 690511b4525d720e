package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/memory"
)

const sample = `codigo_barras;nombre;precio;almacen;cantidad
7701;Café molido;12500,50;Bodega Norte;20
7702;Azúcar;3800;;
7701;Café molido;12500,50;Bodega Sur;5
`

func TestParseRows(t *testing.T) {
	rows, err := parseRows(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Café molido", rows[0].name)
	assert.True(t, decimal.RequireFromString("12500.50").Equal(rows[0].price))
	assert.Equal(t, int64(20), rows[0].quantity)
	assert.Equal(t, int64(0), rows[1].quantity)
	assert.Equal(t, 4, rows[2].line)
}

func TestParseRows_Latin1(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(sample)
	require.NoError(t, err)

	rows, err := parseRows(decoderFor(bytes.NewReader([]byte(encoded)), "ISO-8859-1"))
	require.NoError(t, err)
	assert.Equal(t, "Azúcar", rows[1].name)
}

func TestParseRows_Rejects(t *testing.T) {
	cases := map[string]string{
		"cantidad fraccionaria": "h;h;h;h;h\n1;A;10;W;2.5\n",
		"cantidad negativa":     "h;h;h;h;h\n1;A;10;W;-1\n",
		"sin almacén":           "h;h;h;h;h\n1;A;10;;3\n",
		"sin nombre":            "h;h;h;h;h\n1;;10;W;3\n",
		"precio inválido":       "h;h;h;h;h\n1;A;x;W;3\n",
		"columnas faltantes":    "h;h;h;h;h\n1;A;10\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseRows(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
	_, err := parseRows(strings.NewReader("h;h;h;h;h\n1;A;10;W;2.5\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestSeeder_Apply(t *testing.T) {
	store := memory.New()
	admin := &entity.User{Email: "a@x.test", Name: "A", Role: entity.RoleAdmin, PasswordHash: "x"}
	require.NoError(t, store.Users().Create(context.Background(), admin))

	s := &seeder{
		products:   store.Products(),
		warehouses: store.Warehouses(),
		engine: inventory.NewAccountingEngine(
			memory.NewTxRunner(store),
			store.Products(), store.Warehouses(), store.Stock(), store.Movements(),
		),
		actorID: admin.ID,
	}
	require.NoError(t, s.loadWarehouses(context.Background()))

	rows, err := parseRows(strings.NewReader(sample))
	require.NoError(t, err)
	created, entries, err := s.apply(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, entries)

	stock, err := store.Stock().ListByProduct(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stock, 2)
	assert.Equal(t, int64(20), stock[0].Quantity)
	assert.Equal(t, int64(5), stock[1].Quantity)

	// Segunda pasada: no duplica productos ni almacenes, suma existencias.
	require.NoError(t, s.loadWarehouses(context.Background()))
	created, _, err = s.apply(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	ws, err := store.Warehouses().List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, ws, 2)
}
