package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReturned  OrderStatus = "RETURNED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodPayPal PaymentMethod = "PAYPAL"
	PaymentMethodCOD    PaymentMethod = "COD"
)

// ステータス遷移は一方向のみ（後戻り禁止）
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {OrderStatusReturned},
	OrderStatusReturned:  {OrderStatusRefunded},
}

// CanTransitionTo は s から next への遷移が許可されているか
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// 終端ステータスか
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned, OrderStatusRefunded:
		return true
	}
	return false
}

// 注文はカート確定時点のスナップショット。作成後の明細・金額変更は不可。
// 金額内訳は total = subtotal + shipping_fee + tax - discount を常に満たす。
type Order struct {
	ID              int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID          int64         `gorm:"not null;index;uniqueIndex:uq_orders_user_idem,priority:1" json:"user_id"`
	AddressID       int64         `gorm:"not null" json:"address_id"`
	Status          OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod   PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentPaid     bool          `gorm:"not null;default:false" json:"payment_paid"`
	ProviderOrderID string        `gorm:"type:varchar(64);index" json:"-"`
	CaptureID       string        `gorm:"type:varchar(64)" json:"-"`
	CouponCode      string        `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`

	//金額はすべて最小通貨単位
	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	ShippingFee int64 `gorm:"not null" json:"shipping_fee"`
	Tax         int64 `gorm:"not null" json:"tax"`
	Discount    int64 `gorm:"not null" json:"discount"`
	Total       int64 `gorm:"not null" json:"total"`

	TrackingNumber string     `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	CancelReason   string     `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`

	//Idempotency-Keyの一意性はユーザー単位（他人のキー再利用と衝突させない）
	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_orders_user_idem,priority:2" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
