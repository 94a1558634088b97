package repository

import (
	"app/internal/domain/model"
	"context"
)

// 在庫台帳の約束。在庫数を書き換えるのはここだけ。
type InventoryRepository interface {
	// 商品ごとに1行。既にあればErrAlreadyExists
	Create(ctx context.Context, inv model.Inventory) (model.Inventory, error)

	FindByProductID(ctx context.Context, productID int64) (model.Inventory, error)

	// 在庫が足りるときだけ減算。同時にreservedも減らす（reserved > quantityにならないように）
	DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	Increase(ctx context.Context, productID int64, qty int64) error

	// available（quantity - reserved）が足りるときだけ確保
	ReserveIfAvailable(ctx context.Context, productID int64, qty int64) (bool, error)

	// 確保解除。0未満にはならない
	Release(ctx context.Context, productID int64, qty int64) error

	// 在庫の現在値を設定
	SetQuantity(ctx context.Context, productID int64, newQuantity int64) error

	// quantity <= threshold を少ない順に返す
	ListLowStock(ctx context.Context, threshold int64, limit int) ([]model.Inventory, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
