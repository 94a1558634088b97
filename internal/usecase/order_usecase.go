package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/notification"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type OrderUsecase struct {
	txManager     repo.TransactionManager
	orderRepo     repo.OrderRepository
	orderItemRepo repo.OrderItemRepository
	addressRepo   repo.AddressRepository
	auditRepo     repo.AuditLogRepository
	gateway       payment.Gateway
	notifier      notification.Notifier
	log           *logrus.Logger
	pricing       PricingConfig
	currency      string
	returnURL     string
	cancelURL     string
}

// DI
func NewOrderUsecase(
	txManager repo.TransactionManager,
	orderRepo repo.OrderRepository,
	orderItemRepo repo.OrderItemRepository,
	addressRepo repo.AddressRepository,
	auditRepo repo.AuditLogRepository,
	gateway payment.Gateway,
	notifier notification.Notifier,
	log *logrus.Logger,
	pricing PricingConfig,
	currency string,
	returnURL string,
	cancelURL string,
) *OrderUsecase {
	return &OrderUsecase{
		txManager:     txManager,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		addressRepo:   addressRepo,
		auditRepo:     auditRepo,
		gateway:       gateway,
		notifier:      notifier,
		log:           log,
		pricing:       pricing,
		currency:      currency,
		returnURL:     returnURL,
		cancelURL:     cancelURL,
	}
}

// Createがidempotency_keyのunique制約で弾かれたときの合図
var errIdempotentRetry = errors.New("idempotent retry")

type PlaceOrderInput struct {
	AddressID      int64  `json:"address_id"`
	PaymentMethod  string `json:"payment_method"`
	CouponCode     string `json:"coupon_code"`
	Notes          string `json:"notes"`
	IdempotencyKey string `json:"-"`
}

type OrderItemOutput struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
}

type OrderOutput struct {
	ID             int64             `json:"id"`
	OrderNumber    string            `json:"order_number"`
	Status         string            `json:"status"`
	PaymentMethod  string            `json:"payment_method"`
	PaymentPaid    bool              `json:"payment_paid"`
	CouponCode     string            `json:"coupon_code,omitempty"`
	Subtotal       int64             `json:"subtotal"`
	ShippingFee    int64             `json:"shipping_fee"`
	Tax            int64             `json:"tax"`
	Discount       int64             `json:"discount"`
	Total          int64             `json:"total"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	DeliveredAt    *time.Time        `json:"delivered_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Items          []OrderItemOutput `json:"items,omitempty"`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	out := OrderOutput{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		PaymentMethod:  string(o.PaymentMethod),
		PaymentPaid:    o.PaymentPaid,
		CouponCode:     o.CouponCode,
		Subtotal:       o.Subtotal,
		ShippingFee:    o.ShippingFee,
		Tax:            o.Tax,
		Discount:       o.Discount,
		Total:          o.Total,
		TrackingNumber: o.TrackingNumber,
		DeliveredAt:    o.DeliveredAt,
		CreatedAt:      o.CreatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, OrderItemOutput{
			ProductID:   it.ProductID,
			ProductName: it.ProductNameSnapshot,
			ImageURL:    it.ProductImageSnapshot,
			UnitPrice:   it.UnitPriceSnapshot,
			Quantity:    it.Quantity,
		})
	}
	return out
}

// PlaceOrder は注文確定。全工程を1トランザクションで行う:
//
//  1. Idempotency-Keyで既存注文を再読（再送なら同じ注文を返す）
//  2. カートのselected明細を読む
//  3. 商品ごとに在庫を条件付きで減算（足りなければ全体ロールバック）
//  4. クーポン検証と条件付き使用回数加算
//  5. 金額計算と注文・明細の作成
//  6. 購入済み明細をカートから抜く
//
// 途中で失敗すればすべて巻き戻るので、減算済み在庫が残ることはない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	if in.IdempotencyKey == "" || len(in.IdempotencyKey) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "Idempotency-Key header required")
	}

	method := model.PaymentMethod(strings.ToUpper(in.PaymentMethod))
	switch method {
	case model.PaymentMethodPayPal, model.PaymentMethodCOD:
	default:
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	owned, err := u.addressRepo.IsOwnedByUser(ctx, in.AddressID, userID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}

	var (
		placed      model.Order
		placedItems []model.OrderItem
		replayed    bool
	)

	err = u.txManager.WithinTx(ctx, func(r repo.TxRepos) error {
		//再送チェック。同じキーなら最初の結果をそのまま返す
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			placed = existing
			placedItems = items
			replayed = true
			return nil
		}

		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusConflict, "cart is empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListSelectedByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusConflict, "cart is empty")
		}

		//商品情報の凍結と在庫減算
		priced := make([]PricedItem, 0, len(cartItems))
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		productIDs := make([]int64, 0, len(cartItems))

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusConflict, "product no longer available")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusConflict, "product no longer available")
			}

			ok, err := r.Inventories().DecreaseIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, "insufficient stock")
			}

			priced = append(priced, PricedItem{
				ProductID:    p.ID,
				CategoryID:   p.CategoryID,
				UnitPrice:    ci.UnitPriceSnapshot,
				Quantity:     ci.Quantity,
				FreeShipping: p.FreeShipping,
			})
			orderItems = append(orderItems, model.OrderItem{
				ProductID:            p.ID,
				SellerID:             p.SellerID,
				ProductNameSnapshot:  p.Name,
				ProductImageSnapshot: p.ImageURL,
				UnitPriceSnapshot:    ci.UnitPriceSnapshot,
				Quantity:             ci.Quantity,
			})
			productIDs = append(productIDs, ci.ProductID)
		}

		//クーポン。リクエストのコード優先、なければカートのもの。確定時にもう一度本検証する
		requested := strings.ToUpper(strings.TrimSpace(in.CouponCode))
		if requested == "" {
			requested = cart.CouponCode
		}

		var discount int64
		var couponCode string
		if requested != "" {
			c, err := r.Coupons().FindByCode(ctx, requested)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusConflict, "coupon no longer available")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			ev := EvaluateCoupon(c, priced, time.Now())
			if !ev.Valid {
				return NewHTTPError(http.StatusConflict, "coupon: "+ev.Message)
			}

			ok, err := r.Coupons().IncrementUsageIfAvailable(ctx, c.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, "coupon usage limit reached")
			}

			discount = ev.DiscountAmount
			couponCode = c.Code
		}

		totals := ComputeTotals(priced, discount, u.pricing)

		status := model.OrderStatusPending
		paid := false
		if method == model.PaymentMethodCOD {
			//代引きは承認フローがないのでそのままPAID扱い
			status = model.OrderStatusPaid
			paid = true
		}

		order := model.Order{
			OrderNumber:    "ORD-" + uuid.NewString(),
			UserID:         userID,
			AddressID:      in.AddressID,
			Status:         status,
			PaymentMethod:  method,
			PaymentPaid:    paid,
			CouponCode:     couponCode,
			Subtotal:       totals.Subtotal,
			ShippingFee:    totals.ShippingFee,
			Tax:            totals.Tax,
			Discount:       totals.Discount,
			Total:          totals.Total,
			Notes:          in.Notes,
			IdempotencyKey: in.IdempotencyKey,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err == repo.ErrAlreadyExists {
			//同じキーの並行リクエストが一瞬先に確定した。
			//このtxは巻き戻し、コミット済みの注文を読み直して返す
			return errIdempotentRetry
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//購入済み明細だけカートから抜く（selected=falseは残す）
		if err := r.CartItems().DeleteByCartAndProductIDs(ctx, cart.ID, productIDs); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if couponCode != "" {
			if err := r.Carts().SetCouponCode(ctx, cart.ID, ""); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		for i := range orderItems {
			orderItems[i].OrderID = orderID
		}
		placed = order
		placedItems = orderItems
		return nil
	})
	if errors.Is(err, errIdempotentRetry) {
		existing, found, ferr := u.orderRepo.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if ferr != nil || !found {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items, ierr := u.orderItemRepo.ListByOrderID(ctx, existing.ID)
		if ierr != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return toOrderOutput(existing, items), nil
	}
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !replayed {
		u.log.WithFields(logrus.Fields{
			"order_id":     placed.ID,
			"order_number": placed.OrderNumber,
			"user_id":      userID,
			"total":        placed.Total,
		}).Info("order placed")

		u.notifier.NotifyOrderEvent(ctx, notification.OrderEvent{
			Type:        notification.EventOrderPlaced,
			OrderID:     placed.ID,
			OrderNumber: placed.OrderNumber,
			UserID:      userID,
		})
	}

	return toOrderOutput(placed, placedItems), nil
}

type StartPaymentOutput struct {
	ProviderOrderID string `json:"provider_order_id"`
	ApprovalURL     string `json:"approval_url"`
}

// PayPal決済の開始。プロバイダ側に注文を作り承認URLを返す。
func (u *OrderUsecase) StartPayment(ctx context.Context, userID int64, orderID int64) (StartPaymentOutput, error) {
	o, err := u.findOwnOrder(ctx, userID, orderID)
	if err != nil {
		return StartPaymentOutput{}, err
	}
	if o.PaymentMethod != model.PaymentMethodPayPal {
		return StartPaymentOutput{}, NewHTTPError(http.StatusConflict, "order is not paypal payment")
	}
	if o.Status != model.OrderStatusPending {
		return StartPaymentOutput{}, NewHTTPError(http.StatusConflict, "order is not payable")
	}

	res, err := u.gateway.CreateOrder(ctx, payment.CreateOrderInput{
		Amount:      o.Total,
		Currency:    u.currency,
		Reference:   o.OrderNumber,
		ReturnURL:   u.returnURL,
		CancelURL:   u.cancelURL,
		Description: "order " + o.OrderNumber,
	})
	if err != nil {
		u.log.WithError(err).WithField("order_id", orderID).Error("paypal create order failed")
		return StartPaymentOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}

	if err := u.orderRepo.SetProviderOrderID(ctx, orderID, res.ProviderOrderID); err != nil {
		return StartPaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return StartPaymentOutput{
		ProviderOrderID: res.ProviderOrderID,
		ApprovalURL:     res.ApprovalURL,
	}, nil
}

// 承認後のキャプチャ。成功すればPENDING→PAID。
// Captureは再試行安全、Mark側は条件付きUPDATEなので二重遷移しない。
func (u *OrderUsecase) PayOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	o, err := u.findOwnOrder(ctx, userID, orderID)
	if err != nil {
		return OrderOutput{}, err
	}
	if o.PaymentMethod != model.PaymentMethodPayPal {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "order is not paypal payment")
	}
	if o.Status != model.OrderStatusPending {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "order is not payable")
	}
	if o.ProviderOrderID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "payment not started")
	}

	res, err := u.gateway.Capture(ctx, o.ProviderOrderID)
	if err != nil {
		u.log.WithError(err).WithField("order_id", orderID).Error("paypal capture failed")
		return OrderOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}
	if res.Status != payment.StatusCompleted {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "payment not completed")
	}

	ok, err := u.orderRepo.MarkPaidIf(ctx, orderID, model.OrderStatusPending, res.CaptureID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "order status changed")
	}

	u.notifier.NotifyOrderEvent(ctx, notification.OrderEvent{
		Type:        notification.EventOrderPaid,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      userID,
	})

	return u.GetOrderDetail(ctx, userID, model.RoleUser, orderID)
}

type ShipOrderInput struct {
	TrackingNumber string `json:"tracking_number"`
}

// 発送。対象注文に自分の商品がある出品者か管理者のみ。PAID→SHIPPED。
func (u *OrderUsecase) ShipOrder(ctx context.Context, actorID int64, role model.Role, orderID int64, in ShipOrderInput) error {
	if actorID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if strings.TrimSpace(in.TrackingNumber) == "" {
		return NewHTTPError(http.StatusBadRequest, "tracking_number required")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if role != model.RoleAdmin {
		has, err := u.orderItemRepo.ExistsBySellerID(ctx, orderID, actorID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !has {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}

	ok, err := u.orderRepo.MarkShippedIf(ctx, orderID, strings.TrimSpace(in.TrackingNumber))
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return NewHTTPError(http.StatusConflict, "order is not shippable")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   mustJSON(map[string]interface{}{"status": o.Status}),
		AfterJSON:    mustJSON(map[string]interface{}{"status": model.OrderStatusShipped}),
		CreatedAt:    time.Now(),
	})

	u.notifier.NotifyOrderEvent(ctx, notification.OrderEvent{
		Type:        notification.EventOrderShipped,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
	})

	return nil
}

// 配達完了。購入者・出品者・管理者のいずれか。SHIPPED→DELIVERED。
func (u *OrderUsecase) DeliverOrder(ctx context.Context, actorID int64, role model.Role, orderID int64) error {
	if actorID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if role != model.RoleAdmin && o.UserID != actorID {
		has, err := u.orderItemRepo.ExistsBySellerID(ctx, orderID, actorID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !has {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}

	ok, err := u.orderRepo.MarkDeliveredIf(ctx, orderID, time.Now())
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return NewHTTPError(http.StatusConflict, "order is not deliverable")
	}

	u.notifier.NotifyOrderEvent(ctx, notification.OrderEvent{
		Type:        notification.EventOrderDelivered,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
	})

	return nil
}

type CancelOrderInput struct {
	Reason string `json:"reason"`
}

// キャンセル。PENDING/PAIDからのみ。在庫戻しまで同一トランザクションで行う。
func (u *OrderUsecase) CancelOrder(ctx context.Context, actorID int64, role model.Role, orderID int64, in CancelOrderInput) error {
	if actorID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if role != model.RoleAdmin && o.UserID != actorID {
		has, err := u.orderItemRepo.ExistsBySellerID(ctx, orderID, actorID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !has {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}

	err = u.txManager.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().MarkCancelledIf(ctx, orderID, in.Reason)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return NewHTTPError(http.StatusConflict, "order is not cancellable")
		}

		//在庫を戻す。クーポン使用回数は戻さない
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			if err := r.Inventories().Increase(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return err
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   mustJSON(map[string]interface{}{"status": o.Status}),
		AfterJSON:    mustJSON(map[string]interface{}{"status": model.OrderStatusCancelled, "reason": in.Reason}),
		CreatedAt:    time.Now(),
	})

	u.notifier.NotifyOrderEvent(ctx, notification.OrderEvent{
		Type:        notification.EventOrderCancelled,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
	})

	return nil
}

// 返品受付。管理者のみ。DELIVERED→RETURNED。
func (u *OrderUsecase) ReturnOrder(ctx context.Context, adminID int64, orderID int64) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	ok, err := u.orderRepo.MarkReturnedIf(ctx, orderID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return NewHTTPError(http.StatusConflict, "order is not returnable")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   mustJSON(map[string]interface{}{"status": o.Status}),
		AfterJSON:    mustJSON(map[string]interface{}{"status": model.OrderStatusReturned}),
		CreatedAt:    time.Now(),
	})

	return nil
}

// 返金。管理者のみ。RETURNED→REFUNDED。
// PayPal決済ならプロバイダ側の返金を先に実行する。
func (u *OrderUsecase) RefundOrder(ctx context.Context, adminID int64, orderID int64, reason string) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.Status != model.OrderStatusReturned {
		return NewHTTPError(http.StatusConflict, "order is not refundable")
	}

	if o.PaymentMethod == model.PaymentMethodPayPal && o.CaptureID != "" {
		res, err := u.gateway.Refund(ctx, o.CaptureID, o.Total, u.currency, reason)
		if err != nil {
			u.log.WithError(err).WithField("order_id", orderID).Error("paypal refund failed")
			return NewHTTPError(http.StatusBadGateway, "payment gateway error")
		}
		//PENDINGやFAILEDのままREFUNDEDにはしない
		if res.Status != payment.StatusCompleted && res.Status != payment.StatusRefunded {
			u.log.WithFields(logrus.Fields{
				"order_id":      orderID,
				"refund_status": res.Status,
			}).Warn("paypal refund not completed")
			return NewHTTPError(http.StatusBadGateway, "refund not completed")
		}
	}

	ok, err := u.orderRepo.MarkRefundedIf(ctx, orderID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return NewHTTPError(http.StatusConflict, "order status changed")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionRefundOrder,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   mustJSON(map[string]interface{}{"status": model.OrderStatusReturned}),
		AfterJSON:    mustJSON(map[string]interface{}{"status": model.OrderStatusRefunded, "reason": reason}),
		CreatedAt:    time.Now(),
	})

	u.notifier.NotifyOrderEvent(ctx, notification.OrderEvent{
		Type:        notification.EventOrderRefunded,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
	})

	return nil
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := u.orderRepo.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toOrderListOutput(orders, total, page, limit), nil
}

// 出品者向け。自分の商品が含まれる注文の一覧。
func (u *OrderUsecase) ListSellerOrders(ctx context.Context, sellerID int64, page int, limit int) (OrderListOutput, error) {
	if sellerID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := u.orderRepo.ListBySellerID(ctx, sellerID, page, limit)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toOrderListOutput(orders, total, page, limit), nil
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

func (u *OrderUsecase) ListAdminOrders(ctx context.Context, in AdminOrderListInput) (OrderListOutput, error) {
	if in.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Status != "" && !model.OrderStatus(in.Status).IsValid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	orders, total, err := u.orderRepo.ListAdmin(ctx, repo.AdminOrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: in.Status,
		UserID: in.UserID,
		From:   in.From,
		To:     in.To,
	})
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toOrderListOutput(orders, total, in.Page, in.Limit), nil
}

// 注文詳細。購入者本人・明細を持つ出品者・管理者だけ見られる。
func (u *OrderUsecase) GetOrderDetail(ctx context.Context, actorID int64, role model.Role, orderID int64) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if role != model.RoleAdmin && o.UserID != actorID {
		has, err := u.orderItemRepo.ExistsBySellerID(ctx, orderID, actorID)
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !has {
			return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
	}

	items, err := u.orderItemRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toOrderOutput(o, items), nil
}

func (u *OrderUsecase) findOwnOrder(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	return o, nil
}

func toOrderListOutput(orders []model.Order, total int64, page int, limit int) OrderListOutput {
	out := OrderListOutput{
		Items: make([]OrderOutput, 0, len(orders)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, o := range orders {
		out.Items = append(out.Items, toOrderOutput(o, nil))
	}
	return out
}
