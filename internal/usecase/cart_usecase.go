package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	repo "app/internal/repository"
)

type CartUsecase struct {
	cartRepo      repo.CartRepository
	cartItemRepo  repo.CartItemRepository
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	couponRepo    repo.CouponRepository
}

// DI
func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	couponRepo repo.CouponRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:      cartRepo,
		cartItemRepo:  cartItemRepo,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		couponRepo:    couponRepo,
	}
}

// カート表示用の明細。商品情報と在庫状況を合わせて返す。
type CartItemOutput struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	ProductImageURL   string `json:"product_image_url"`
	UnitPriceSnapshot int64  `json:"unit_price_snapshot"`
	CurrentPrice      int64  `json:"current_price"`
	Quantity          int64  `json:"quantity"`
	Selected          bool   `json:"selected"`
	InStock           bool   `json:"in_stock"`
	AvailableStock    int64  `json:"available_stock"`
	FreeShipping      bool   `json:"free_shipping"`
}

type CartOutput struct {
	CartID     int64            `json:"cart_id"`
	Items      []CartItemOutput `json:"items"`
	CouponCode string           `json:"coupon_code,omitempty"`
	//selected明細だけの小計
	SelectedSubtotal int64 `json:"selected_subtotal"`
}

// カート取得。なければ空カートを作る。
// 非公開になった商品や在庫切れもそのまま返し、in_stockで判断させる。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartOutput{
		CartID:     cart.ID,
		Items:      make([]CartItemOutput, 0, len(items)),
		CouponCode: cart.CouponCode,
	}

	for _, ci := range items {
		item := CartItemOutput{
			ID:                ci.ID,
			ProductID:         ci.ProductID,
			UnitPriceSnapshot: ci.UnitPriceSnapshot,
			Quantity:          ci.Quantity,
			Selected:          ci.Selected,
		}

		p, err := u.productRepo.FindByID(ctx, ci.ProductID)
		if err == nil && p.IsActive {
			item.ProductName = p.Name
			item.ProductImageURL = p.ImageURL
			item.CurrentPrice = p.Price
			item.FreeShipping = p.FreeShipping

			inv, err := u.inventoryRepo.FindByProductID(ctx, ci.ProductID)
			if err == nil {
				item.AvailableStock = inv.Available()
				item.InStock = inv.Available() >= ci.Quantity
			}
		}

		if ci.Selected && item.InStock {
			out.SelectedSubtotal += ci.UnitPriceSnapshot * ci.Quantity
		}

		out.Items = append(out.Items, item)
	}

	return out, nil
}

type AddToCartInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// カート追加。同一商品は数量をプラスする。
// 価格は追加時点のものをスナップショットする。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddToCartInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 || in.Quantity > 99 {
		return NewHTTPError(http.StatusBadRequest, "quantity must be 1-99")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	//自分の商品は買えない
	if p.SellerID == userID {
		return NewHTTPError(http.StatusForbidden, "cannot buy own product")
	}

	inv, err := u.inventoryRepo.FindByProductID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusConflict, "out of stock")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//既存数量との合算で在庫をチェックする
	var current int64
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, ci := range items {
		if ci.ProductID == in.ProductID {
			current = ci.Quantity
			break
		}
	}
	if inv.Available() < current+in.Quantity {
		return NewHTTPError(http.StatusConflict, "insufficient stock")
	}

	if err := u.cartItemRepo.UpsertByCartAndProduct(ctx, cart.ID, in.ProductID, in.Quantity, p.Price); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}

type UpdateCartItemInput struct {
	Quantity *int64 `json:"quantity"`
	Selected *bool  `json:"selected"`
}

func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity == nil && in.Selected == nil {
		return NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	if in.Quantity != nil {
		qty := *in.Quantity
		if qty < 1 || qty > 99 {
			return NewHTTPError(http.StatusBadRequest, "quantity must be 1-99")
		}

		ci, err := u.cartItemRepo.FindByID(ctx, cartItemID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		inv, err := u.inventoryRepo.FindByProductID(ctx, ci.ProductID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusConflict, "out of stock")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if inv.Available() < qty {
			return NewHTTPError(http.StatusConflict, "insufficient stock")
		}

		if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, qty); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	if in.Selected != nil {
		if err := u.cartItemRepo.UpdateSelected(ctx, cartItemID, *in.Selected); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return nil
}

func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return nil //カートがなければ何もしない
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if cart.CouponCode != "" {
		if err := u.cartRepo.SetCouponCode(ctx, cart.ID, ""); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return nil
}

// クーポンをカートに載せる。
// ここでは存在と有効性の軽い確認だけ行い、本検証は確定時にやり直す。
func (u *CartUsecase) ApplyCoupon(ctx context.Context, userID int64, code string) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	c, err := u.couponRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	now := time.Now()
	if !c.IsActive || now.Before(c.StartsAt) || now.After(c.ExpiresAt) {
		return NewHTTPError(http.StatusConflict, "coupon is not available")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.SetCouponCode(ctx, cart.ID, c.Code); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}

func (u *CartUsecase) RemoveCoupon(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.SetCouponCode(ctx, cart.ID, ""); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}
