package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品。stockは持たない（在庫はInventoryが唯一の台帳）。
type Product struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID     int64          `gorm:"not null;index" json:"seller_id"`
	CategoryID   int64          `gorm:"not null;index" json:"category_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	ImageURL     string         `gorm:"type:varchar(500)" json:"image_url"`
	Price        int64          `gorm:"not null" json:"price"`
	FreeShipping bool           `gorm:"not null;default:false" json:"free_shipping"`
	IsActive     bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
