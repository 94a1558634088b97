package usecase

// 金額計算に必要な明細のスライス。商品・クーポン評価と共用。
type PricedItem struct {
	ProductID    int64
	CategoryID   int64
	UnitPrice    int64
	Quantity     int64
	FreeShipping bool
}

type PricingConfig struct {
	//税率（basis point。1000 = 10%）
	TaxRateBP int64
	//送料の固定額（最小通貨単位）
	ShippingFee int64
}

type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shipping_fee"`
	Tax         int64 `json:"tax"`
	Discount    int64 `json:"discount"`
	Total       int64 `json:"total"`
}

// ComputeTotals は注文金額を決定的に計算する純関数。
// 同じ入力なら必ず同じ出力（監査・テスト可能性のため副作用なし）。
//   - subtotal = Σ(unit_price × quantity)
//   - shipping = 全明細がfree_shippingなら0、それ以外は固定額
//   - tax      = subtotal × 税率
//   - total    = subtotal + shipping + tax - discount（0未満にはしない）
func ComputeTotals(items []PricedItem, discount int64, cfg PricingConfig) Totals {
	var subtotal int64
	allFree := len(items) > 0

	for _, it := range items {
		subtotal += it.UnitPrice * it.Quantity
		if !it.FreeShipping {
			allFree = false
		}
	}

	var shipping int64
	if !allFree {
		shipping = cfg.ShippingFee
	}

	tax := subtotal * cfg.TaxRateBP / 10000

	//discountはクーポン側で上限済みだが、念のため総額を下回らせない
	total := subtotal + shipping + tax - discount
	if total < 0 {
		total = 0
	}

	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		Discount:    discount,
		Total:       total,
	}
}
