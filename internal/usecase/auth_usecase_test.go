package usecase_test

import (
	"context"
	"testing"

	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type AuthUserRepoMock struct{ mock.Mock }

func (m *AuthUserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *AuthUserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used")
}

func (m *AuthUserRepoMock) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *AuthUserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type AuthRTRepoMock struct{ mock.Mock }

func (m *AuthRTRepoMock) Create(ctx context.Context, rt *model.RefreshToken) error {
	panic("not used")
}

func (m *AuthRTRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	panic("not used")
}

func (m *AuthRTRepoMock) MarkUsed(ctx context.Context, tokenID string) error {
	panic("not used")
}

func (m *AuthRTRepoMock) DeleteAllByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *AuthRTRepoMock) DeleteByID(ctx context.Context, tokenID string) error {
	panic("not used")
}

func newAuthUC() (*usecase.AuthUsecase, *AuthUserRepoMock, *AuthRTRepoMock) {
	users := new(AuthUserRepoMock)
	rt := new(AuthRTRepoMock)
	cfg := config.Config{JWTSecret: "test-secret"}
	uc := usecase.NewAuthUsecase(cfg, users, rt, validator.NewAuthValidator(users))
	return uc, users, rt
}

func TestRegister_SellerRole(t *testing.T) {
	uc, users, _ := newAuthUC()
	ctx := context.Background()

	users.On("FindByEmail", mock.Anything, "seller@example.com").Return(nil, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "seller@example.com" &&
			u.Role == model.RoleSeller &&
			u.PasswordHash != "password123" //平文で保存していないこと
	})).Return(nil)

	res, err := uc.Register(ctx, usecase.AuthRegisterRequest{
		Email:    "seller@example.com",
		Password: "password123",
		Role:     "seller",
	})
	assert.NoError(t, err)
	assert.Equal(t, "SELLER", res.User.Role)

	users.AssertExpectations(t)
}

func TestRegister_DefaultsToUserRole(t *testing.T) {
	uc, users, _ := newAuthUC()
	ctx := context.Background()

	users.On("FindByEmail", mock.Anything, "buyer@example.com").Return(nil, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RoleUser
	})).Return(nil)

	res, err := uc.Register(ctx, usecase.AuthRegisterRequest{
		Email:    "buyer@example.com",
		Password: "password123",
	})
	assert.NoError(t, err)
	assert.Equal(t, "USER", res.User.Role)
}

// ADMINは登録では作れない
func TestRegister_RejectsAdminRole(t *testing.T) {
	uc, users, _ := newAuthUC()

	_, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{
		Email:    "boss@example.com",
		Password: "password123",
		Role:     "ADMIN",
	})
	assert.ErrorIs(t, err, validator.ErrInvalidInput)

	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSetUserRole_PromotesToSellerAndInvalidatesTokens(t *testing.T) {
	uc, users, rt := newAuthUC()
	ctx := context.Background()

	users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{
		ID: 7, Email: "u@example.com", Role: model.RoleUser, IsActive: true,
	}, nil)
	users.On("UpdateRole", mock.Anything, int64(7), model.RoleSeller).Return(nil)
	//旧roleを載せたJWTとrefreshを両方失効させる
	users.On("IncrementTokenVersion", mock.Anything, int64(7)).Return(nil)
	rt.On("DeleteAllByUserID", mock.Anything, int64(7)).Return(nil)

	res, err := uc.SetUserRole(ctx, 7, "seller")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, "SELLER", res.Role)

	users.AssertExpectations(t)
	rt.AssertExpectations(t)
}

func TestSetUserRole_UnknownUser(t *testing.T) {
	uc, users, _ := newAuthUC()

	users.On("FindByID", mock.Anything, int64(999)).Return(nil, repo.ErrNotFound)

	_, err := uc.SetUserRole(context.Background(), 999, "SELLER")
	assert.ErrorIs(t, err, usecase.ErrUserNotFound)
}

func TestSetUserRole_InvalidRole(t *testing.T) {
	uc, users, _ := newAuthUC()

	_, err := uc.SetUserRole(context.Background(), 7, "SUPERUSER")
	assert.ErrorIs(t, err, validator.ErrInvalidInput)

	users.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}
