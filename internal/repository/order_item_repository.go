package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 出品者がこの注文に明細を持つか（認可チェック用）
	ExistsBySellerID(ctx context.Context, orderID int64, sellerID int64) (bool, error)
}
