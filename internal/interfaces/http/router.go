package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventrack-api/internal/application/auth"
	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/application/usecase"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	ProductUC   *usecase.ProductUseCase
	WarehouseUC *usecase.WarehouseUseCase
	Engine      *inventory.AccountingEngine
	StockQuery  *inventory.StockQueryUseCase
	Reports     *inventory.ReportUseCase
	JWTSecret   string
	AppName     string
}

// Router registra las rutas de la API.
// La autenticación se aplica por ruta: /products admite lecturas públicas dentro del mismo grupo.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	api := app.Group("/api")

	authn := AuthMiddleware(deps.JWTSecret)
	admin := RequireRole(entity.RoleAdmin)

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Post("/recover-password", authHandler.RecoverPassword)

	// Users
	userHandler := NewUserHandler(deps.UserUC)
	users := api.Group("/users")
	users.Post("/", authn, admin, userHandler.Create)
	users.Get("/", authn, admin, userHandler.List)
	users.Put("/me", authn, userHandler.UpdateMe)
	users.Put("/:id", authn, admin, userHandler.Update)

	// Products: lecturas públicas
	productHandler := NewProductHandler(deps.ProductUC)
	products := api.Group("/products")
	products.Get("/", productHandler.List)
	products.Get("/barcode/:barcode", productHandler.GetByBarcode)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", authn, productHandler.Create)
	products.Put("/:id", authn, productHandler.Update)
	products.Delete("/:id", authn, admin, productHandler.Delete)

	// Warehouses
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses := api.Group("/warehouses", authn)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Post("/", admin, warehouseHandler.Create)
	warehouses.Put("/:id", admin, warehouseHandler.Update)
	warehouses.Delete("/:id", admin, warehouseHandler.Delete)

	// Inventory
	invHandler := NewInventoryHandler(deps.Engine, deps.StockQuery, deps.Reports)
	inv := api.Group("/inventory", authn)
	inv.Post("/entry", invHandler.RecordEntry)
	inv.Post("/exit", invHandler.RecordExit)
	inv.Get("/stock", invHandler.ListStock)
	inv.Get("/stock/:product_id", invHandler.ProductStock)
	inv.Get("/stock/:product_id/:warehouse_id", invHandler.GetRow)
	inv.Get("/movements/entries", admin, invHandler.ListEntries)
	inv.Get("/movements/exits", admin, invHandler.ListExits)
	inv.Get("/alerts", admin, invHandler.LowStock)
	inv.Get("/export/csv", admin, invHandler.ExportCSV)
	inv.Get("/export/pdf", admin, invHandler.ExportPDF)
}
