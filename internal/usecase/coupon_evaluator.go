package usecase

import (
	"time"

	"app/internal/domain/model"
)

// クーポン評価の結果。Messageが空なら適用可。
type CouponEvaluation struct {
	Valid bool `json:"valid"`
	//不可理由（Valid=falseのとき）
	Message string `json:"message,omitempty"`
	//対象明細だけの小計
	ApplicableSubtotal int64 `json:"-"`
	DiscountAmount     int64 `json:"discount_amount"`
	SubtotalAfter      int64 `json:"subtotal_after_discount"`
}

// EvaluateCoupon はクーポンをカート内容に対して評価する純関数。
// 検証は以下の順で行い、最初の失敗で打ち切る:
//  1. 有効フラグ
//  2. 期間
//  3. 利用回数上限
//  4. 最低購入金額
//  5. 適用範囲（商品・カテゴリ指定）
//
// 割引は適用対象の明細の小計に対して計算する。
// プレビューと注文確定で同じ関数を使うので結果がズレない。
func EvaluateCoupon(c model.Coupon, items []PricedItem, now time.Time) CouponEvaluation {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPrice * it.Quantity
	}

	if !c.IsActive {
		return CouponEvaluation{Message: "coupon is not active"}
	}

	if now.Before(c.StartsAt) {
		return CouponEvaluation{Message: "coupon is not started yet"}
	}
	if now.After(c.ExpiresAt) {
		return CouponEvaluation{Message: "coupon is expired"}
	}

	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return CouponEvaluation{Message: "coupon usage limit reached"}
	}

	if c.MinPurchase != nil && subtotal < *c.MinPurchase {
		return CouponEvaluation{Message: "minimum purchase not met"}
	}

	//適用対象の小計を出す
	applicable := applicableSubtotal(c, items)
	if applicable == 0 {
		return CouponEvaluation{Message: "coupon is not applicable to these items"}
	}

	discount := computeDiscount(c, applicable)

	return CouponEvaluation{
		Valid:              true,
		ApplicableSubtotal: applicable,
		DiscountAmount:     discount,
		SubtotalAfter:      subtotal - discount,
	}
}

// 適用範囲でフィルタした小計。対象外なら0
func applicableSubtotal(c model.Coupon, items []PricedItem) int64 {
	var sum int64

	switch c.Applicability {
	case model.CouponApplySpecificProducts:
		for _, it := range items {
			if containsID(c.ProductIDs, it.ProductID) {
				sum += it.UnitPrice * it.Quantity
			}
		}
	case model.CouponApplySpecificCategories:
		for _, it := range items {
			if containsID(c.CategoryIDs, it.CategoryID) {
				sum += it.UnitPrice * it.Quantity
			}
		}
	default: //ALL_PRODUCTS
		for _, it := range items {
			sum += it.UnitPrice * it.Quantity
		}
	}

	return sum
}

// PERCENTAGE: 対象小計×value% をmax_discountで頭打ち
// FIXED: value。対象小計は超えない（マイナス割引にしない）
func computeDiscount(c model.Coupon, applicable int64) int64 {
	var discount int64

	switch c.Type {
	case model.CouponTypePercentage:
		discount = applicable * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case model.CouponTypeFixed:
		discount = c.Value
		if discount > applicable {
			discount = applicable
		}
	}

	if discount < 0 {
		discount = 0
	}
	return discount
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
