// seed carga productos, almacenes y existencias iniciales desde un CSV.
//
// Uso: go run ./cmd/seed [ruta/inventario.csv] [charset]
// Por defecto lee inventario.csv en UTF-8; charset "ISO-8859-1" acepta exportaciones de Excel.
// Columnas (separador ';'): codigo_barras;nombre;precio;almacen;cantidad
// Las cantidades se registran como entradas del administrador inicial.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventrack-api/internal/application/auth"
	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/postgres"
	"github.com/jhoicas/inventrack-api/pkg/config"
	"github.com/jhoicas/inventrack-api/pkg/logger"
)

type seedRow struct {
	line      int
	barcode   string
	name      string
	price     decimal.Decimal
	warehouse string
	quantity  int64
}

// decoderFor envuelve r según el charset declarado.
func decoderFor(r io.Reader, charset string) io.Reader {
	switch strings.ToUpper(strings.TrimSpace(charset)) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}
	return r
}

// parseRows lee el CSV. La primera línea es cabecera; cantidad vacía equivale a 0.
func parseRows(r io.Reader) ([]seedRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("leer cabecera: %w", err)
	}
	var rows []seedRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		row := seedRow{
			line:      line,
			barcode:   strings.TrimSpace(rec[0]),
			name:      strings.TrimSpace(rec[1]),
			warehouse: strings.TrimSpace(rec[3]),
		}
		if row.barcode == "" || row.name == "" {
			return nil, fmt.Errorf("línea %d: codigo_barras y nombre son requeridos", line)
		}
		if p := strings.TrimSpace(rec[2]); p != "" {
			row.price, err = decimal.NewFromString(strings.ReplaceAll(p, ",", "."))
			if err != nil || row.price.IsNegative() {
				return nil, fmt.Errorf("línea %d: precio inválido %q", line, p)
			}
		}
		if q := strings.TrimSpace(rec[4]); q != "" && q != "0" {
			d, err := decimal.NewFromString(q)
			if err != nil {
				return nil, fmt.Errorf("línea %d: cantidad inválida %q", line, q)
			}
			if row.quantity, err = inventory.ParseQuantity(d); err != nil {
				return nil, fmt.Errorf("línea %d: %w", line, err)
			}
			if row.warehouse == "" {
				return nil, fmt.Errorf("línea %d: almacen requerido cuando hay cantidad", line)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type seeder struct {
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	engine     *inventory.AccountingEngine
	actorID    int64

	byName map[string]int64
}

func (s *seeder) loadWarehouses(ctx context.Context) error {
	s.byName = make(map[string]int64)
	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		list, err := s.warehouses.List(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		for _, w := range list {
			s.byName[strings.ToLower(w.Name)] = w.ID
		}
		if len(list) < pageSize {
			return nil
		}
	}
}

func (s *seeder) warehouseID(ctx context.Context, name string) (int64, error) {
	if id, ok := s.byName[strings.ToLower(name)]; ok {
		return id, nil
	}
	w := &entity.Warehouse{Name: name}
	if err := s.warehouses.Create(ctx, w); err != nil {
		return 0, err
	}
	s.byName[strings.ToLower(name)] = w.ID
	return w.ID, nil
}

func (s *seeder) productID(ctx context.Context, row seedRow) (int64, bool, error) {
	p, err := s.products.GetByBarcode(ctx, row.barcode)
	if err != nil {
		return 0, false, err
	}
	if p != nil {
		return p.ID, false, nil
	}
	p = &entity.Product{Barcode: row.barcode, Name: row.name, Price: row.price}
	if err := s.products.Create(ctx, p); err != nil {
		return 0, false, err
	}
	return p.ID, true, nil
}

// apply crea lo que falte y registra las entradas. Devuelve productos creados y entradas registradas.
func (s *seeder) apply(ctx context.Context, rows []seedRow) (int, int, error) {
	created, entries := 0, 0
	for _, row := range rows {
		pid, isNew, err := s.productID(ctx, row)
		if err != nil {
			return created, entries, fmt.Errorf("línea %d: producto: %w", row.line, err)
		}
		if isNew {
			created++
		}
		if row.quantity == 0 {
			continue
		}
		wid, err := s.warehouseID(ctx, row.warehouse)
		if err != nil {
			return created, entries, fmt.Errorf("línea %d: almacén: %w", row.line, err)
		}
		if _, err := s.engine.RecordEntry(ctx, inventory.EntryInput{
			ActorID:     s.actorID,
			WarehouseID: wid,
			ProductID:   pid,
			Quantity:    row.quantity,
			Note:        "carga inicial",
		}); err != nil {
			return created, entries, fmt.Errorf("línea %d: entrada: %w", row.line, err)
		}
		entries++
	}
	return created, entries, nil
}

func main() {
	csvPath := "inventario.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	charset := ""
	if len(os.Args) > 2 {
		charset = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("seed")

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := parseRows(decoderFor(f, charset))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	users := postgres.NewUserRepository(pool)
	authUC := auth.NewAuthUseCase(users, auth.JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	if _, err := authUC.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
		log.Fatal().Err(err).Msg("administrador inicial (defina ADMIN_PASSWORD)")
	}
	admin, err := users.GetByEmail(ctx, cfg.Admin.Email)
	if err != nil || admin == nil {
		log.Fatal().Err(err).Msg("leer administrador")
	}

	products := postgres.NewProductRepository(pool)
	warehouses := postgres.NewWarehouseRepository(pool)
	s := &seeder{
		products:   products,
		warehouses: warehouses,
		engine: inventory.NewAccountingEngine(
			postgres.NewTxRunner(pool, cfg.DB.LockTimeout),
			products, warehouses, postgres.NewStockRepository(pool), postgres.NewMovementRepository(pool),
			inventory.WithLogger(log),
		),
		actorID: admin.ID,
	}
	if err := s.loadWarehouses(ctx); err != nil {
		log.Fatal().Err(err).Msg("listar almacenes")
	}
	created, entries, err := s.apply(ctx, rows)
	if err != nil {
		log.Fatal().Err(err).Int("productos", created).Int("entradas", entries).Msg("carga interrumpida")
	}
	log.Info().Str("archivo", csvPath).Int("filas", len(rows)).Int("productos", created).Int("entradas", entries).Msg("carga completada")
}
