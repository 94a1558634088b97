package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type InvInventoryRepoMock struct{ mock.Mock }

func (m *InvInventoryRepoMock) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	args := m.Called(ctx, inv)
	created, _ := args.Get(0).(model.Inventory)
	return created, args.Error(1)
}

func (m *InvInventoryRepoMock) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	args := m.Called(ctx, productID)
	inv, _ := args.Get(0).(model.Inventory)
	return inv, args.Error(1)
}

func (m *InvInventoryRepoMock) DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InvInventoryRepoMock) Increase(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *InvInventoryRepoMock) ReserveIfAvailable(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InvInventoryRepoMock) Release(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *InvInventoryRepoMock) SetQuantity(ctx context.Context, productID int64, newQuantity int64) error {
	panic("not used")
}

func (m *InvInventoryRepoMock) ListLowStock(ctx context.Context, threshold int64, limit int) ([]model.Inventory, error) {
	args := m.Called(ctx, threshold, limit)
	items, _ := args.Get(0).([]model.Inventory)
	return items, args.Error(1)
}

func (m *InvInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

func newInventoryUC() (*usecase.InventoryUsecase, *InvInventoryRepoMock, *ProdProductRepoMock, *ProdAuditRepoMock) {
	iRepo := new(InvInventoryRepoMock)
	pRepo := new(ProdProductRepoMock)
	aRepo := new(ProdAuditRepoMock)
	return usecase.NewInventoryUsecase(iRepo, pRepo, aRepo), iRepo, pRepo, aRepo
}

func TestCreateInventory_ForbiddenForOtherSeller(t *testing.T) {
	uc, _, pRepo, _ := newInventoryUC()

	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9}, nil)

	_, err := uc.CreateInventory(context.Background(), 8, model.RoleSeller, usecase.CreateInventoryInput{
		ProductID: 100, Quantity: 10,
	})
	assertStatus(t, err, 403)
}

func TestCreateInventory_Conflict(t *testing.T) {
	uc, iRepo, pRepo, _ := newInventoryUC()
	ctx := context.Background()

	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9}, nil)
	iRepo.On("Create", mock.Anything, mock.Anything).Return(model.Inventory{}, repo.ErrAlreadyExists)

	_, err := uc.CreateInventory(ctx, 9, model.RoleSeller, usecase.CreateInventoryInput{
		ProductID: 100, Quantity: 10,
	})
	assertStatus(t, err, 409)
}

func TestAdjustStock_IncreaseRecordsHistory(t *testing.T) {
	uc, iRepo, pRepo, aRepo := newInventoryUC()
	ctx := context.Background()

	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9}, nil)
	iRepo.On("FindByProductID", mock.Anything, int64(100)).Return(model.Inventory{ProductID: 100, Quantity: 5}, nil).Once()
	iRepo.On("Increase", mock.Anything, int64(100), int64(3)).Return(nil)
	iRepo.On("FindByProductID", mock.Anything, int64(100)).Return(model.Inventory{ProductID: 100, Quantity: 8}, nil).Once()
	iRepo.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(a model.InventoryAdjustment) bool {
		return a.ProductID == 100 && a.Delta == 3 && a.QuantityBefore == 5 && a.QuantityAfter == 8 && a.Reason == "restock"
	})).Return(nil)
	aRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateStock && l.ResourceType == model.AuditResourceInventory
	})).Return(nil)

	out, err := uc.AdjustStock(ctx, 9, model.RoleSeller, 100, usecase.AdjustStockInput{Delta: 3, Reason: "restock"})
	assert.NoError(t, err)
	assert.Equal(t, int64(8), out.Quantity)

	iRepo.AssertExpectations(t)
	aRepo.AssertExpectations(t)
}

func TestAdjustStock_NegativeBeyondStock(t *testing.T) {
	uc, iRepo, pRepo, _ := newInventoryUC()
	ctx := context.Background()

	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9}, nil)
	iRepo.On("FindByProductID", mock.Anything, int64(100)).Return(model.Inventory{ProductID: 100, Quantity: 2}, nil)
	iRepo.On("DecreaseIfEnough", mock.Anything, int64(100), int64(5)).Return(false, nil)

	_, err := uc.AdjustStock(ctx, 9, model.RoleSeller, 100, usecase.AdjustStockInput{Delta: -5, Reason: "shrinkage"})
	assertStatus(t, err, 409)

	iRepo.AssertNotCalled(t, "CreateAdjustment", mock.Anything, mock.Anything)
}

func TestReserveStock_ConflictWhenNotAvailable(t *testing.T) {
	uc, iRepo, pRepo, _ := newInventoryUC()
	ctx := context.Background()

	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9}, nil)
	iRepo.On("ReserveIfAvailable", mock.Anything, int64(100), int64(5)).Return(false, nil)

	_, err := uc.ReserveStock(ctx, 9, model.RoleSeller, 100, usecase.ReserveStockInput{Quantity: 5})
	assertStatus(t, err, 409)
}

func TestReleaseStock_Success(t *testing.T) {
	uc, iRepo, pRepo, _ := newInventoryUC()
	ctx := context.Background()

	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9}, nil)
	iRepo.On("Release", mock.Anything, int64(100), int64(2)).Return(nil)
	iRepo.On("FindByProductID", mock.Anything, int64(100)).Return(model.Inventory{ProductID: 100, Quantity: 10, ReservedQuantity: 1}, nil)

	out, err := uc.ReleaseStock(ctx, 9, model.RoleSeller, 100, usecase.ReserveStockInput{Quantity: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.Available)
}

func TestAdjustStock_ZeroDeltaRejected(t *testing.T) {
	uc, _, _, _ := newInventoryUC()

	_, err := uc.AdjustStock(context.Background(), 9, model.RoleSeller, 100, usecase.AdjustStockInput{Delta: 0, Reason: "noop"})
	assertStatus(t, err, 400)
}
