package model

import "time"

// 在庫台帳。商品ごとに1行。
// 不変条件: 0 <= reserved_quantity <= quantity。
// available = quantity - reserved_quantity。
type Inventory struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID        int64     `gorm:"not null;uniqueIndex" json:"product_id"`
	Quantity         int64     `gorm:"not null" json:"quantity"`
	ReservedQuantity int64     `gorm:"not null;default:0" json:"reserved_quantity"`
	SKU              string    `gorm:"type:varchar(100)" json:"sku,omitempty"`
	Location         string    `gorm:"type:varchar(255)" json:"location,omitempty"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 購入可能数
func (i Inventory) Available() int64 {
	return i.Quantity - i.ReservedQuantity
}
