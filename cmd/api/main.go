package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/inventrack-api/internal/application/auth"
	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/application/usecase"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
	infracache "github.com/jhoicas/inventrack-api/internal/infrastructure/cache"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/events"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/inventrack-api/internal/infrastructure/pdf"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventrack-api/internal/interfaces/http"
	"github.com/jhoicas/inventrack-api/pkg/config"
	"github.com/jhoicas/inventrack-api/pkg/logger"
)

// storage repositorios y runner de transacciones del backend elegido.
type storage struct {
	tx         inventory.TxRunner
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	users      repository.UserRepository
	stock      repository.StockRepository
	movements  repository.MovementRepository
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.App.InMemory() {
		log.Warn().Msg("APP_STORAGE=memory: los datos se pierden al reiniciar")
		s := memory.New()
		return &storage{
			tx:         memory.NewTxRunner(s),
			products:   s.Products(),
			warehouses: s.Warehouses(),
			users:      s.Users(),
			stock:      s.Stock(),
			movements:  s.Movements(),
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		tx:         postgres.NewTxRunner(pool, cfg.DB.LockTimeout),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		users:      postgres.NewUserRepository(pool),
		stock:      postgres.NewStockRepository(pool),
		movements:  postgres.NewMovementRepository(pool),
		close:      pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer store.close()

	engineOpts := []inventory.Option{
		inventory.WithLogger(log),
		inventory.WithMaxRetries(cfg.Inventory.MaxRetries),
		inventory.WithLowStockThreshold(cfg.Inventory.LowStockThreshold),
	}

	// Caché Redis de resúmenes por producto (opcional).
	var stockCache inventory.StockCache
	if cfg.Redis.Enabled() {
		client, err := infracache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, caché deshabilitada")
		} else {
			defer client.Close()
			stockCache = infracache.NewRedisStockCache(client, cfg.Redis.TTL, log)
			engineOpts = append(engineOpts, inventory.WithCache(stockCache))
		}
	}

	// Eventos de movimientos en Kafka (opcional).
	if cfg.Kafka.Enabled() {
		producer, err := events.NewSyncProducer(cfg.Kafka)
		if err != nil {
			log.Warn().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("kafka no disponible, eventos deshabilitados")
		} else {
			publisher := events.NewKafkaPublisher(producer, cfg.Kafka.TopicPrefix)
			defer publisher.Close()
			engineOpts = append(engineOpts, inventory.WithPublisher(publisher))
		}
	}

	engine := inventory.NewAccountingEngine(
		store.tx, store.products, store.warehouses, store.stock, store.movements,
		engineOpts...,
	)
	stockQuery := inventory.NewStockQueryUseCase(
		store.products, store.warehouses, store.stock, store.movements,
		stockCache, cfg.Inventory.LowStockThreshold, log,
	)
	reports := inventory.NewReportUseCase(store.stock, infrapdf.NewMarotoStockReport(cfg.App.Name))

	authUC := auth.NewAuthUseCase(store.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	if cfg.Admin.Password != "" {
		created, err := authUC.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			log.Fatal().Err(err).Msg("crear administrador inicial")
		}
		if created {
			log.Info().Str("email", cfg.Admin.Email).Msg("administrador inicial creado")
		}
	} else {
		log.Warn().Msg("ADMIN_PASSWORD vacío: no se crea administrador inicial")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventrack API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(store.users),
		ProductUC:   usecase.NewProductUseCase(store.products),
		WarehouseUC: usecase.NewWarehouseUseCase(store.warehouses, store.products),
		Engine:      engine,
		StockQuery:  stockQuery,
		Reports:     reports,
		JWTSecret:   cfg.JWT.Secret,
		AppName:     cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
