package model

import (
	"time"

	"github.com/lib/pq"
)

type CouponType string

const (
	CouponTypePercentage CouponType = "PERCENTAGE"
	CouponTypeFixed      CouponType = "FIXED"
)

type CouponApplicability string

const (
	CouponApplyAll                CouponApplicability = "ALL_PRODUCTS"
	CouponApplySpecificProducts   CouponApplicability = "SPECIFIC_PRODUCTS"
	CouponApplySpecificCategories CouponApplicability = "SPECIFIC_CATEGORIES"
)

// クーポン。
// usage_count は注文確定と同一トランザクションで1回だけ加算する。
// usage_limit を超えての加算は許さない（条件付きUPDATEで保証）。
type Coupon struct {
	ID            int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string              `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Type          CouponType          `gorm:"type:varchar(20);not null" json:"type"`
	Value         int64               `gorm:"not null" json:"value"`
	MinPurchase   *int64              `json:"min_purchase,omitempty"`
	MaxDiscount   *int64              `json:"max_discount,omitempty"`
	Applicability CouponApplicability `gorm:"type:varchar(30);not null;default:'ALL_PRODUCTS'" json:"applicability"`
	ProductIDs    pq.Int64Array       `gorm:"type:bigint[]" json:"product_ids,omitempty"`
	CategoryIDs   pq.Int64Array       `gorm:"type:bigint[]" json:"category_ids,omitempty"`
	UsageLimit    *int64              `json:"usage_limit,omitempty"`
	UsageCount    int64               `gorm:"not null;default:0" json:"usage_count"`
	StartsAt      time.Time           `gorm:"not null" json:"starts_at"`
	ExpiresAt     time.Time           `gorm:"not null" json:"expires_at"`
	IsActive      bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
