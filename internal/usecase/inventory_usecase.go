package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type InventoryUsecase struct {
	inventoryRepo repo.InventoryRepository
	productRepo   repo.ProductRepository
	auditRepo     repo.AuditLogRepository
}

// DI
func NewInventoryUsecase(
	inventoryRepo repo.InventoryRepository,
	productRepo repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
) *InventoryUsecase {
	return &InventoryUsecase{
		inventoryRepo: inventoryRepo,
		productRepo:   productRepo,
		auditRepo:     auditRepo,
	}
}

type CreateInventoryInput struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	SKU       string `json:"sku"`
	Location  string `json:"location"`
}

type AdjustStockInput struct {
	//正で入荷、負で棚卸減
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

type InventoryOutput struct {
	ProductID        int64  `json:"product_id"`
	Quantity         int64  `json:"quantity"`
	ReservedQuantity int64  `json:"reserved_quantity"`
	Available        int64  `json:"available"`
	SKU              string `json:"sku"`
	Location         string `json:"location"`
}

func toInventoryOutput(inv model.Inventory) InventoryOutput {
	return InventoryOutput{
		ProductID:        inv.ProductID,
		Quantity:         inv.Quantity,
		ReservedQuantity: inv.ReservedQuantity,
		Available:        inv.Available(),
		SKU:              inv.SKU,
		Location:         inv.Location,
	}
}

// 在庫行の新規作成。商品の所有者か管理者だけ。
func (u *InventoryUsecase) CreateInventory(ctx context.Context, actorID int64, role model.Role, in CreateInventoryInput) (InventoryOutput, error) {
	if actorID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if role != model.RoleAdmin && p.SellerID != actorID {
		return InventoryOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	inv, err := u.inventoryRepo.Create(ctx, model.Inventory{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		SKU:       in.SKU,
		Location:  in.Location,
	})
	if err == repo.ErrAlreadyExists {
		return InventoryOutput{}, NewHTTPError(http.StatusConflict, "inventory already exists")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toInventoryOutput(inv), nil
}

func (u *InventoryUsecase) GetInventory(ctx context.Context, actorID int64, role model.Role, productID int64) (InventoryOutput, error) {
	if actorID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if role != model.RoleAdmin && p.SellerID != actorID {
		return InventoryOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	inv, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "inventory not found")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toInventoryOutput(inv), nil
}

// 手動の在庫調整（入荷・棚卸）。調整履歴と監査ログを残す。
func (u *InventoryUsecase) AdjustStock(ctx context.Context, actorID int64, role model.Role, productID int64, in AdjustStockInput) (InventoryOutput, error) {
	if actorID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Delta == 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "delta must not be 0")
	}
	if in.Reason == "" {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if role != model.RoleAdmin && p.SellerID != actorID {
		return InventoryOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	before, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "inventory not found")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.Delta > 0 {
		if err := u.inventoryRepo.Increase(ctx, productID, in.Delta); err != nil {
			return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	} else {
		ok, err := u.inventoryRepo.DecreaseIfEnough(ctx, productID, -in.Delta)
		if err != nil {
			return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return InventoryOutput{}, NewHTTPError(http.StatusConflict, "insufficient stock")
		}
	}

	after, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	now := time.Now()
	_ = u.inventoryRepo.CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID:      productID,
		ActorUserID:    actorID,
		Delta:          in.Delta,
		Reason:         in.Reason,
		QuantityBefore: before.Quantity,
		QuantityAfter:  after.Quantity,
		CreatedAt:      now,
	})

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceInventory,
		ResourceID:   productID,
		BeforeJSON:   mustJSON(map[string]interface{}{"quantity": before.Quantity}),
		AfterJSON:    mustJSON(map[string]interface{}{"quantity": after.Quantity}),
		CreatedAt:    now,
	})

	return toInventoryOutput(after), nil
}

type ReserveStockInput struct {
	Quantity int64 `json:"quantity"`
}

// 在庫の引き当て。available（quantity - reserved）の範囲でのみ成功する。
func (u *InventoryUsecase) ReserveStock(ctx context.Context, actorID int64, role model.Role, productID int64, in ReserveStockInput) (InventoryOutput, error) {
	if actorID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
	}

	if err := u.requireProductAccess(ctx, actorID, role, productID); err != nil {
		return InventoryOutput{}, err
	}

	ok, err := u.inventoryRepo.ReserveIfAvailable(ctx, productID, in.Quantity)
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return InventoryOutput{}, NewHTTPError(http.StatusConflict, "insufficient available stock")
	}

	inv, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toInventoryOutput(inv), nil
}

// 引き当ての解除。reservedは0未満にはならない。
func (u *InventoryUsecase) ReleaseStock(ctx context.Context, actorID int64, role model.Role, productID int64, in ReserveStockInput) (InventoryOutput, error) {
	if actorID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
	}

	if err := u.requireProductAccess(ctx, actorID, role, productID); err != nil {
		return InventoryOutput{}, err
	}

	if err := u.inventoryRepo.Release(ctx, productID, in.Quantity); err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "inventory not found")
	} else if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	inv, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toInventoryOutput(inv), nil
}

type SetStockInput struct {
	Quantity int64 `json:"quantity"`
}

// 管理者による在庫数の直接設定（棚卸の確定値など）
func (u *InventoryUsecase) SetStock(ctx context.Context, adminID int64, productID int64, in SetStockInput) (InventoryOutput, error) {
	if adminID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 0 {
		return InventoryOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}

	before, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err == repo.ErrNotFound {
		return InventoryOutput{}, NewHTTPError(http.StatusNotFound, "inventory not found")
	}
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.inventoryRepo.SetQuantity(ctx, productID, in.Quantity); err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	after, err := u.inventoryRepo.FindByProductID(ctx, productID)
	if err != nil {
		return InventoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceInventory,
		ResourceID:   productID,
		BeforeJSON:   mustJSON(map[string]interface{}{"quantity": before.Quantity}),
		AfterJSON:    mustJSON(map[string]interface{}{"quantity": after.Quantity}),
		CreatedAt:    time.Now(),
	})

	return toInventoryOutput(after), nil
}

// 商品の所有者か管理者か
func (u *InventoryUsecase) requireProductAccess(ctx context.Context, actorID int64, role model.Role, productID int64) error {
	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if role != model.RoleAdmin && p.SellerID != actorID {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return nil
}

// 管理者向けの低在庫一覧
func (u *InventoryUsecase) ListLowStock(ctx context.Context, threshold int64, limit int) ([]InventoryOutput, error) {
	if threshold < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "threshold must be >= 0")
	}
	if limit < 1 || limit > 100 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, err := u.inventoryRepo.ListLowStock(ctx, threshold, limit)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]InventoryOutput, 0, len(items))
	for _, inv := range items {
		out = append(out, toInventoryOutput(inv))
	}
	return out, nil
}
