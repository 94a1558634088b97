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

type ProdProductRepoMock struct{ mock.Mock }

func (m *ProdProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProdProductRepoMock) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]model.Product, int64, error) {
	args := m.Called(ctx, sellerID, page, limit)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProdProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProdProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProdProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProdProductRepoMock) SoftDelete(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type ProdAuditRepoMock struct{ mock.Mock }

func (m *ProdAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	m.Called(ctx, log)
	return nil
}

func (m *ProdAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used")
}

func newProductUC() (*usecase.ProductUsecase, *ProdProductRepoMock, *ProdAuditRepoMock) {
	pRepo := new(ProdProductRepoMock)
	aRepo := new(ProdAuditRepoMock)
	return usecase.NewProductUsecase(pRepo, aRepo), pRepo, aRepo
}

func TestListPublicProducts_InvalidPage(t *testing.T) {
	uc, _, _ := newProductUC()

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 0, Limit: 20})
	assertStatus(t, err, 400)
}

func TestListPublicProducts_InvalidPriceRange(t *testing.T) {
	uc, _, _ := newProductUC()

	min := int64(500)
	max := int64(100)
	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, MinPrice: &min, MaxPrice: &max,
	})
	assertStatus(t, err, 400)
}

func TestListPublicProducts_Success(t *testing.T) {
	uc, pRepo, _ := newProductUC()
	ctx := context.Background()

	q := repo.ProductListQuery{Page: 1, Limit: 20, Q: "coffee", Sort: "new"}
	pRepo.On("ListPublic", mock.Anything, q).Return([]model.Product{
		{ID: 1, Name: "Coffee", IsActive: true},
	}, int64(1), nil)

	out, err := uc.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 20, Q: "coffee", Sort: "new"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, 1, len(out.Items))

	pRepo.AssertExpectations(t)
}

func TestGetProductDetail_NotFoundWhenInactive(t *testing.T) {
	uc, pRepo, _ := newProductUC()

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, IsActive: false}, nil)

	_, err := uc.GetProductDetail(context.Background(), 1)
	assertStatus(t, err, 404)
}

func TestCreateProduct_Success(t *testing.T) {
	uc, pRepo, _ := newProductUC()
	ctx := context.Background()

	pRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.SellerID == 9 && p.Name == "Coffee" && p.Price == 2000 && p.CategoryID == 10
	})).Return(model.Product{ID: 123, SellerID: 9, Name: "Coffee"}, nil)

	out, err := uc.CreateProduct(ctx, 9, usecase.ProductInput{
		Name:       " Coffee ",
		Price:      2000,
		CategoryID: 10,
		IsActive:   true,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(123), out.ID)

	pRepo.AssertExpectations(t)
}

func TestUpdateProduct_ForbiddenForOtherSeller(t *testing.T) {
	uc, pRepo, _ := newProductUC()

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, SellerID: 9, Name: "x"}, nil)

	err := uc.UpdateProduct(context.Background(), 8, model.RoleSeller, 1, usecase.ProductInput{Name: "y", Price: 1})
	assertStatus(t, err, 403)
	pRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_AdminCanEditAny(t *testing.T) {
	uc, pRepo, _ := newProductUC()

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, SellerID: 9, Name: "x"}, nil)
	pRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	err := uc.UpdateProduct(context.Background(), 99, model.RoleAdmin, 1, usecase.ProductInput{Name: "y", Price: 1})
	assert.NoError(t, err)

	pRepo.AssertExpectations(t)
}

func TestDeleteProduct_WritesAuditLog(t *testing.T) {
	uc, pRepo, aRepo := newProductUC()

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, SellerID: 9, Name: "x"}, nil)
	pRepo.On("SoftDelete", mock.Anything, int64(1)).Return(nil)
	aRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDeleteProduct && l.ResourceID == 1 && l.ActorUserID == 9
	})).Return(nil)

	err := uc.DeleteProduct(context.Background(), 9, model.RoleSeller, 1)
	assert.NoError(t, err)

	aRepo.AssertExpectations(t)
}
