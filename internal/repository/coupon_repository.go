package repository

import (
	"app/internal/domain/model"
	"context"
)

type CouponRepository interface {
	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	Update(ctx context.Context, c model.Coupon) error
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	List(ctx context.Context, page int, limit int) ([]model.Coupon, int64, error)

	// usage_limit未満のときだけusage_countを+1する（falseなら上限到達）
	IncrementUsageIfAvailable(ctx context.Context, couponID int64) (bool, error)
}
