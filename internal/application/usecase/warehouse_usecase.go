package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/inventrack-api/internal/application/dto"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
)

// WarehouseUseCase casos de uso CRUD para almacenes.
type WarehouseUseCase struct {
	repo        repository.WarehouseRepository
	productRepo repository.ProductRepository
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(repo repository.WarehouseRepository, productRepo repository.ProductRepository) *WarehouseUseCase {
	return &WarehouseUseCase{repo: repo, productRepo: productRepo}
}

// Create crea un almacén. Si trae producto asignado, debe existir.
func (uc *WarehouseUseCase) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.ensureProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	warehouse := &entity.Warehouse{Name: name, AssignedProductID: in.ProductID}
	if err := uc.repo.Create(ctx, warehouse); err != nil {
		return nil, err
	}
	return ToWarehouseResponse(warehouse), nil
}

// GetByID obtiene un almacén por ID.
func (uc *WarehouseUseCase) GetByID(ctx context.Context, id int64) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.ErrNotFound
	}
	return ToWarehouseResponse(warehouse), nil
}

// Update actualiza un almacén.
func (uc *WarehouseUseCase) Update(ctx context.Context, id int64, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		warehouse.Name = name
	}
	switch {
	case in.ClearProduct:
		warehouse.AssignedProductID = nil
	case in.ProductID != nil:
		if err := uc.ensureProduct(ctx, in.ProductID); err != nil {
			return nil, err
		}
		warehouse.AssignedProductID = in.ProductID
	}
	if err := uc.repo.Update(ctx, warehouse); err != nil {
		return nil, err
	}
	return ToWarehouseResponse(warehouse), nil
}

// List lista almacenes con paginación.
func (uc *WarehouseUseCase) List(ctx context.Context, limit, offset int) (*dto.WarehouseListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *ToWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina un almacén. Con stock o entradas registradas devuelve domain.ErrInUse.
func (uc *WarehouseUseCase) Delete(ctx context.Context, id int64) error {
	return uc.repo.Delete(ctx, id)
}

func (uc *WarehouseUseCase) ensureProduct(ctx context.Context, productID *int64) error {
	if productID == nil {
		return nil
	}
	p, err := uc.productRepo.GetByID(ctx, *productID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("producto asignado %d: %w", *productID, domain.ErrNotFound)
	}
	return nil
}

// ToWarehouseResponse convierte la entidad en su DTO de salida.
func ToWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	if w == nil {
		return nil
	}
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		ProductID: w.AssignedProductID,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
