package repository

import (
	"app/internal/domain/model"
	"context"
)

// ユーザーの永続化の約束
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	//役割変更（管理者が出品者権限を付け外しする）
	UpdateRole(ctx context.Context, userID int64, role model.Role) error
	//強制ログアウト用。token_versionを+1する
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
