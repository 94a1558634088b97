package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 商品ごとに1行だけ
func (r *InventoryGormRepository) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	if err := r.db.WithContext(ctx).Create(&inv).Error; err != nil {
		//product_idのunique違反
		if isUniqueViolation(err) {
			return model.Inventory{}, repo.ErrAlreadyExists
		}
		return model.Inventory{}, err
	}
	return inv, nil
}

func (r *InventoryGormRepository) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Inventory{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

// 在庫が足りるときだけ減らす。reservedはquantityを超えないように一緒に削る
func (r *InventoryGormRepository) DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ? AND quantity >= ?", productID, qty).
		Updates(map[string]interface{}{
			"quantity":          gorm.Expr("quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - LEAST(reserved_quantity, ?)", qty),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル）
func (r *InventoryGormRepository) Increase(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("quantity", gorm.Expr("quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// available（quantity - reserved）が足りるときだけ確保
func (r *InventoryGormRepository) ReserveIfAvailable(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ? AND quantity - reserved_quantity >= ?", productID, qty).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 確保解除。0未満にはしない
func (r *InventoryGormRepository) Release(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("reserved_quantity", gorm.Expr("GREATEST(reserved_quantity - ?, 0)", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫の現在値を設定
func (r *InventoryGormRepository) SetQuantity(ctx context.Context, productID int64, newQuantity int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"quantity": newQuantity,
			//quantityを下げたらreservedも追従させる
			"reserved_quantity": gorm.Expr("LEAST(reserved_quantity, ?)", newQuantity),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 少ない順
func (r *InventoryGormRepository) ListLowStock(ctx context.Context, threshold int64, limit int) ([]model.Inventory, error) {
	var items []model.Inventory
	err := r.db.WithContext(ctx).
		Where("quantity <= ?", threshold).
		Order("quantity asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.Inventory{}, err
	}
	return items, nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}

// SQLSTATE 23505（unique_violation）
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
