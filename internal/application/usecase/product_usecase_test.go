package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventrack-api/internal/application/dto"
	"github.com/jhoicas/inventrack-api/internal/application/usecase"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/memory"
)

func ptr[T any](v T) *T { return &v }

func TestProductUseCase_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewProductUseCase(memory.New().Products())

	created, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: " 7701234 ", Name: "Arroz 500g", Price: decimal.RequireFromString("3200")})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "7701234", created.Barcode)

	got, err := uc.GetByBarcode(ctx, "7701234")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = uc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.GetByBarcode(ctx, "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductUseCase_BarcodeConflict(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewProductUseCase(memory.New().Products())

	a, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "A1", Name: "A"})
	require.NoError(t, err)
	b, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "B1", Name: "B"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, dto.CreateProductRequest{Barcode: "A1", Name: "Otro"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = uc.Update(ctx, b.ID, dto.UpdateProductRequest{Barcode: ptr("A1")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Reasignar su propio código no es conflicto.
	updated, err := uc.Update(ctx, a.ID, dto.UpdateProductRequest{Barcode: ptr("A1"), Name: ptr("A renombrado")})
	require.NoError(t, err)
	assert.Equal(t, "A renombrado", updated.Name)

	got, err := uc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "B1", got.Barcode)
}

func TestProductUseCase_BarcodeIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewProductUseCase(memory.New().Products())

	lower, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "ab1", Name: "Minúsculas"})
	require.NoError(t, err)
	upper, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "AB1", Name: "Mayúsculas"})
	require.NoError(t, err)
	assert.NotEqual(t, lower.ID, upper.ID)

	got, err := uc.GetByBarcode(ctx, "AB1")
	require.NoError(t, err)
	assert.Equal(t, upper.ID, got.ID)
	got, err = uc.GetByBarcode(ctx, "ab1")
	require.NoError(t, err)
	assert.Equal(t, lower.ID, got.ID)

	_, err = uc.GetByBarcode(ctx, "Ab1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductUseCase_Validation(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewProductUseCase(memory.New().Products())

	_, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Create(ctx, dto.CreateProductRequest{Barcode: "x", Name: "x", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "x", Name: "x"})
	require.NoError(t, err)
	_, err = uc.Update(ctx, p.ID, dto.UpdateProductRequest{Price: ptr(decimal.NewFromInt(-5))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Update(ctx, 404, dto.UpdateProductRequest{Name: ptr("y")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductUseCase_DeleteInUse(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	uc := usecase.NewProductUseCase(s.Products())
	wuc := usecase.NewWarehouseUseCase(s.Warehouses(), s.Products())

	free, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "F", Name: "Libre"})
	require.NoError(t, err)
	used, err := uc.Create(ctx, dto.CreateProductRequest{Barcode: "U", Name: "Usado"})
	require.NoError(t, err)
	w, err := wuc.Create(ctx, dto.CreateWarehouseRequest{Name: "W"})
	require.NoError(t, err)
	_, err = s.Stock().ApplyDelta(ctx, used.ID, w.ID, 1, "tx")
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(ctx, used.ID), domain.ErrInUse)
	require.NoError(t, uc.Delete(ctx, free.ID))
	assert.ErrorIs(t, uc.Delete(ctx, free.ID), domain.ErrNotFound)
	assert.ErrorIs(t, wuc.Delete(ctx, w.ID), domain.ErrInUse)
}

func TestWarehouseUseCase_AssignedProduct(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	puc := usecase.NewProductUseCase(s.Products())
	uc := usecase.NewWarehouseUseCase(s.Warehouses(), s.Products())

	p, err := puc.Create(ctx, dto.CreateProductRequest{Barcode: "P", Name: "P"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Name: "W", ProductID: ptr(int64(404))})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Name: "Norte", ProductID: ptr(p.ID)})
	require.NoError(t, err)
	require.NotNil(t, w.ProductID)
	assert.Equal(t, p.ID, *w.ProductID)

	// El producto asignado bloquea su borrado.
	assert.ErrorIs(t, puc.Delete(ctx, p.ID), domain.ErrInUse)

	w, err = uc.Update(ctx, w.ID, dto.UpdateWarehouseRequest{Name: ptr("Norte 2"), ClearProduct: true})
	require.NoError(t, err)
	assert.Nil(t, w.ProductID)
	assert.Equal(t, "Norte 2", w.Name)

	list, err := uc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	_, err = uc.GetByID(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, uc.Delete(ctx, w.ID))
}

func TestUserUseCase(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewUserUseCase(memory.New().Users())

	u, err := uc.Create(ctx, dto.CreateUserRequest{Email: "ana@demo.com", Password: "secreto123", Name: "Ana", Role: entity.RoleBodeguero})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleBodeguero, u.Role)

	_, err = uc.Create(ctx, dto.CreateUserRequest{Email: "ana@demo.com", Password: "secreto123", Name: "Otra", Role: entity.RoleVendedor})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	_, err = uc.Create(ctx, dto.CreateUserRequest{Email: "b@demo.com", Password: "secreto123", Name: "B", Role: "superuser"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.UpdateMe(ctx, u.ID, dto.UpdateUserRequest{Role: ptr(entity.RoleAdmin)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	me, err := uc.UpdateMe(ctx, u.ID, dto.UpdateUserRequest{Name: ptr("Ana María")})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", me.Name)
	assert.Equal(t, entity.RoleBodeguero, me.Role)

	promoted, err := uc.Update(ctx, u.ID, dto.UpdateUserRequest{Role: ptr(entity.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, promoted.Role)

	_, err = uc.Update(ctx, 404, dto.UpdateUserRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	list, err := uc.List(ctx, 20, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}
