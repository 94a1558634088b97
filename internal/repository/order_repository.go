package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	// 注文明細に自分の商品を含む注文（出品者スコープ）
	ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// 以下はすべて条件付きUPDATE。現在ステータスが前提と違えばfalse（＝競合）
	MarkPaidIf(ctx context.Context, orderID int64, from model.OrderStatus, captureID string) (bool, error)
	MarkShippedIf(ctx context.Context, orderID int64, trackingNumber string) (bool, error)
	MarkDeliveredIf(ctx context.Context, orderID int64, deliveredAt time.Time) (bool, error)
	MarkCancelledIf(ctx context.Context, orderID int64, reason string) (bool, error)
	MarkReturnedIf(ctx context.Context, orderID int64) (bool, error)
	MarkRefundedIf(ctx context.Context, orderID int64) (bool, error)

	// PayPal注文ID・承認URL発行時に保存
	SetProviderOrderID(ctx context.Context, orderID int64, providerOrderID string) error
}
