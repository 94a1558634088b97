package model

import "time"

type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusAbandoned CartStatus = "ABANDONED"
)

// 1ユーザーにつきACTIVEは1つ。
// coupon_code は適用希望のコードを保持するだけで、検証は注文確定時に行う。
type Cart struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64      `gorm:"not null;index" json:"user_id"`
	Status     CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CouponCode string     `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
