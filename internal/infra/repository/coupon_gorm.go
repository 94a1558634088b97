package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type CouponGormRepository struct {
	db *gorm.DB
}

func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

func (r *CouponGormRepository) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Coupon{}, repo.ErrAlreadyExists
		}
		return model.Coupon{}, err
	}
	return c, nil
}

func (r *CouponGormRepository) Update(ctx context.Context, c model.Coupon) error {
	res := r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"type":          c.Type,
			"value":         c.Value,
			"min_purchase":  c.MinPurchase,
			"max_discount":  c.MaxDiscount,
			"applicability": c.Applicability,
			"product_ids":   c.ProductIDs,
			"category_ids":  c.CategoryIDs,
			"usage_limit":   c.UsageLimit,
			"starts_at":     c.StartsAt,
			"expires_at":    c.ExpiresAt,
			"is_active":     c.IsActive,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coupon{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

func (r *CouponGormRepository) List(ctx context.Context, page int, limit int) ([]model.Coupon, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Coupon{}).Count(&total).Error; err != nil {
		return []model.Coupon{}, 0, err
	}

	var items []model.Coupon
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Coupon{}, 0, err
	}

	return items, total, nil
}

// usage_countの加算は上限チェックと同一UPDATEで行う（同時利用で上限超えしない）
func (r *CouponGormRepository) IncrementUsageIfAvailable(ctx context.Context, couponID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", couponID).
		Update("usage_count", gorm.Expr("usage_count + 1"))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}
