package model

import "time"

// 注文明細。確定時点の商品情報を凍結して持つ。
// 後からカタログ側の価格・名前が変わっても過去の注文は変わらない。
type OrderItem struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID              int64     `gorm:"not null;index" json:"order_id"`
	ProductID            int64     `gorm:"not null;index" json:"product_id"`
	SellerID             int64     `gorm:"not null;index" json:"seller_id"`
	ProductNameSnapshot  string    `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	ProductImageSnapshot string    `gorm:"type:varchar(500)" json:"product_image_snapshot"`
	UnitPriceSnapshot    int64     `gorm:"not null" json:"unit_price_snapshot"`
	Quantity             int64     `gorm:"not null" json:"quantity"`
	CreatedAt            time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
