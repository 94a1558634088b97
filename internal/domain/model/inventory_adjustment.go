package model

import "time"

//在庫調整の履歴（出品者・管理者の手動調整）

type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	ActorUserID int64     `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	//調整前後の数量（履歴から台帳を追えるように）
	QuantityBefore int64     `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int64     `gorm:"not null" json:"quantity_after"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
