package usecase_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/notification"
	"app/internal/payment"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type OrdOrderRepoMock struct{ mock.Mock }

func (m *OrdOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrdOrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	items, _ := args.Get(0).([]model.Order)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *OrdOrderRepoMock) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used")
}

func (m *OrdOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrdOrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrdOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	panic("not used")
}

func (m *OrdOrderRepoMock) MarkPaidIf(ctx context.Context, orderID int64, from model.OrderStatus, captureID string) (bool, error) {
	args := m.Called(ctx, orderID, from, captureID)
	return args.Bool(0), args.Error(1)
}

func (m *OrdOrderRepoMock) MarkShippedIf(ctx context.Context, orderID int64, trackingNumber string) (bool, error) {
	args := m.Called(ctx, orderID, trackingNumber)
	return args.Bool(0), args.Error(1)
}

func (m *OrdOrderRepoMock) MarkDeliveredIf(ctx context.Context, orderID int64, deliveredAt time.Time) (bool, error) {
	args := m.Called(ctx, orderID, deliveredAt)
	return args.Bool(0), args.Error(1)
}

func (m *OrdOrderRepoMock) MarkCancelledIf(ctx context.Context, orderID int64, reason string) (bool, error) {
	args := m.Called(ctx, orderID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *OrdOrderRepoMock) MarkReturnedIf(ctx context.Context, orderID int64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *OrdOrderRepoMock) MarkRefundedIf(ctx context.Context, orderID int64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *OrdOrderRepoMock) SetProviderOrderID(ctx context.Context, orderID int64, providerOrderID string) error {
	args := m.Called(ctx, orderID, providerOrderID)
	return args.Error(0)
}

type OrdOrderItemRepoMock struct{ mock.Mock }

func (m *OrdOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrdOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrdOrderItemRepoMock) ExistsBySellerID(ctx context.Context, orderID int64, sellerID int64) (bool, error) {
	args := m.Called(ctx, orderID, sellerID)
	return args.Bool(0), args.Error(1)
}

type OrdCartRepoMock struct{ mock.Mock }

func (m *OrdCartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	panic("not used")
}

func (m *OrdCartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *OrdCartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	panic("not used")
}

func (m *OrdCartRepoMock) SetCouponCode(ctx context.Context, cartID int64, code string) error {
	args := m.Called(ctx, cartID, code)
	return args.Error(0)
}

func (m *OrdCartRepoMock) Clear(ctx context.Context, cartID int64) error {
	panic("not used")
}

type OrdCartItemRepoMock struct{ mock.Mock }

func (m *OrdCartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	panic("not used")
}

func (m *OrdCartItemRepoMock) ListSelectedByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *OrdCartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPriceSnapshot int64) error {
	panic("not used")
}

func (m *OrdCartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	panic("not used")
}

func (m *OrdCartItemRepoMock) UpdateSelected(ctx context.Context, cartItemID int64, selected bool) error {
	panic("not used")
}

func (m *OrdCartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	panic("not used")
}

func (m *OrdCartItemRepoMock) DeleteByCartAndProductIDs(ctx context.Context, cartID int64, productIDs []int64) error {
	args := m.Called(ctx, cartID, productIDs)
	return args.Error(0)
}

func (m *OrdCartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	panic("not used")
}

func (m *OrdCartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	panic("not used")
}

type OrdInventoryRepoMock struct{ mock.Mock }

func (m *OrdInventoryRepoMock) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	panic("not used")
}

func (m *OrdInventoryRepoMock) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	panic("not used")
}

func (m *OrdInventoryRepoMock) DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *OrdInventoryRepoMock) Increase(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *OrdInventoryRepoMock) ReserveIfAvailable(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used")
}

func (m *OrdInventoryRepoMock) Release(ctx context.Context, productID int64, qty int64) error {
	panic("not used")
}

func (m *OrdInventoryRepoMock) SetQuantity(ctx context.Context, productID int64, newQuantity int64) error {
	panic("not used")
}

func (m *OrdInventoryRepoMock) ListLowStock(ctx context.Context, threshold int64, limit int) ([]model.Inventory, error) {
	panic("not used")
}

func (m *OrdInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used")
}

type OrdProductRepoMock struct{ mock.Mock }

func (m *OrdProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used")
}

func (m *OrdProductRepoMock) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]model.Product, int64, error) {
	panic("not used")
}

func (m *OrdProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *OrdProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used")
}

func (m *OrdProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used")
}

func (m *OrdProductRepoMock) SoftDelete(ctx context.Context, productID int64) error {
	panic("not used")
}

type OrdCouponRepoMock struct{ mock.Mock }

func (m *OrdCouponRepoMock) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	panic("not used")
}

func (m *OrdCouponRepoMock) Update(ctx context.Context, c model.Coupon) error {
	panic("not used")
}

func (m *OrdCouponRepoMock) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(model.Coupon)
	return c, args.Error(1)
}

func (m *OrdCouponRepoMock) List(ctx context.Context, page int, limit int) ([]model.Coupon, int64, error) {
	panic("not used")
}

func (m *OrdCouponRepoMock) IncrementUsageIfAvailable(ctx context.Context, couponID int64) (bool, error) {
	args := m.Called(ctx, couponID)
	return args.Bool(0), args.Error(1)
}

type OrdAddressRepoMock struct{ mock.Mock }

func (m *OrdAddressRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	panic("not used")
}

func (m *OrdAddressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	panic("not used")
}

func (m *OrdAddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	panic("not used")
}

func (m *OrdAddressRepoMock) Update(ctx context.Context, address model.Address) error {
	panic("not used")
}

func (m *OrdAddressRepoMock) Delete(ctx context.Context, addressID int64) error {
	panic("not used")
}

func (m *OrdAddressRepoMock) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	args := m.Called(ctx, addressID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *OrdAddressRepoMock) SetDefault(ctx context.Context, userID, addressID int64) error {
	panic("not used")
}

type OrdAuditRepoMock struct{ mock.Mock }

func (m *OrdAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	m.Called(ctx, log)
	return nil
}

func (m *OrdAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used")
}

// Txはそのままfnを呼ぶだけのフェイク（commit/rollbackの検証はしない）
type ordTxReposFake struct {
	orders      *OrdOrderRepoMock
	orderItems  *OrdOrderItemRepoMock
	carts       *OrdCartRepoMock
	cartItems   *OrdCartItemRepoMock
	inventories *OrdInventoryRepoMock
	products    *OrdProductRepoMock
	coupons     *OrdCouponRepoMock
}

func (f *ordTxReposFake) Orders() repo.OrderRepository          { return f.orders }
func (f *ordTxReposFake) OrderItems() repo.OrderItemRepository  { return f.orderItems }
func (f *ordTxReposFake) Carts() repo.CartRepository            { return f.carts }
func (f *ordTxReposFake) CartItems() repo.CartItemRepository    { return f.cartItems }
func (f *ordTxReposFake) Inventories() repo.InventoryRepository { return f.inventories }
func (f *ordTxReposFake) Products() repo.ProductRepository      { return f.products }
func (f *ordTxReposFake) Coupons() repo.CouponRepository        { return f.coupons }

type ordTxManagerFake struct{ repos *ordTxReposFake }

func (m *ordTxManagerFake) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m.repos)
}

type ordGatewayStub struct {
	refundFn func(captureID string) (payment.RefundResult, error)
}

func (g *ordGatewayStub) CreateOrder(ctx context.Context, in payment.CreateOrderInput) (payment.CreateOrderResult, error) {
	panic("not used")
}

func (g *ordGatewayStub) Capture(ctx context.Context, providerOrderID string) (payment.CaptureResult, error) {
	panic("not used")
}

func (g *ordGatewayStub) Refund(ctx context.Context, captureID string, amount int64, currency string, reason string) (payment.RefundResult, error) {
	if g.refundFn != nil {
		return g.refundFn(captureID)
	}
	panic("not used")
}

type ordNotifierStub struct{ events []notification.OrderEvent }

func (n *ordNotifierStub) NotifyOrderEvent(_ context.Context, ev notification.OrderEvent) {
	n.events = append(n.events, ev)
}

type ordFixture struct {
	orders      *OrdOrderRepoMock
	orderItems  *OrdOrderItemRepoMock
	carts       *OrdCartRepoMock
	cartItems   *OrdCartItemRepoMock
	inventories *OrdInventoryRepoMock
	products    *OrdProductRepoMock
	coupons     *OrdCouponRepoMock
	addresses   *OrdAddressRepoMock
	audit       *OrdAuditRepoMock
	notifier    *ordNotifierStub
	gateway     *ordGatewayStub
	uc          *usecase.OrderUsecase
}

func newOrdFixture() *ordFixture {
	f := &ordFixture{
		orders:      new(OrdOrderRepoMock),
		orderItems:  new(OrdOrderItemRepoMock),
		carts:       new(OrdCartRepoMock),
		cartItems:   new(OrdCartItemRepoMock),
		inventories: new(OrdInventoryRepoMock),
		products:    new(OrdProductRepoMock),
		coupons:     new(OrdCouponRepoMock),
		addresses:   new(OrdAddressRepoMock),
		audit:       new(OrdAuditRepoMock),
		notifier:    &ordNotifierStub{},
		gateway:     &ordGatewayStub{},
	}

	tx := &ordTxManagerFake{repos: &ordTxReposFake{
		orders:      f.orders,
		orderItems:  f.orderItems,
		carts:       f.carts,
		cartItems:   f.cartItems,
		inventories: f.inventories,
		products:    f.products,
		coupons:     f.coupons,
	}}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f.uc = usecase.NewOrderUsecase(
		tx,
		f.orders,
		f.orderItems,
		f.addresses,
		f.audit,
		f.gateway,
		f.notifier,
		log,
		usecase.PricingConfig{TaxRateBP: 1000, ShippingFee: 500},
		"USD",
		"https://example.com/checkout/complete",
		"https://example.com/checkout/cancel",
	)
	return f
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok, "expected HTTPError, got %v", err)
	if ok {
		assert.Equal(t, status, he.Status)
	}
}

// =====================
// PlaceOrder
// =====================

func basePlaceInput() usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		AddressID:      5,
		PaymentMethod:  "COD",
		IdempotencyKey: "key-1",
	}
}

func TestPlaceOrder_RequiresIdempotencyKey(t *testing.T) {
	f := newOrdFixture()

	in := basePlaceInput()
	in.IdempotencyKey = ""

	_, err := f.uc.PlaceOrder(context.Background(), 1, in)
	assertStatus(t, err, 400)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{}, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assertStatus(t, err, 409)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 2000, Selected: true},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9, IsActive: true, Price: 2000}, nil)
	f.inventories.On("DecreaseIfEnough", mock.Anything, int64(100), int64(2)).Return(false, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assertStatus(t, err, 409)

	//注文は作られない
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_CODSuccess(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 2000, Selected: true},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{
		ID: 100, SellerID: 9, Name: "Coffee", IsActive: true, Price: 2000,
	}, nil)
	f.inventories.On("DecreaseIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)

	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPaid &&
			o.PaymentPaid &&
			o.Subtotal == 4000 &&
			o.ShippingFee == 500 &&
			o.Tax == 400 &&
			o.Discount == 0 &&
			o.Total == 4900 &&
			o.IdempotencyKey == "key-1"
	})).Return(int64(42), nil)

	f.orderItems.On("CreateBulk", mock.Anything, int64(42), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].ProductID == 100 && items[0].Quantity == 2 && items[0].UnitPriceSnapshot == 2000
	})).Return(nil)

	f.cartItems.On("DeleteByCartAndProductIDs", mock.Anything, int64(7), []int64{100}).Return(nil)

	out, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, "PAID", out.Status)
	assert.Equal(t, int64(4900), out.Total)
	assert.Equal(t, 1, len(out.Items))

	//通知が飛んでいる
	assert.Equal(t, 1, len(f.notifier.events))
	assert.Equal(t, notification.EventOrderPlaced, f.notifier.events[0].Type)

	f.orders.AssertExpectations(t)
	f.orderItems.AssertExpectations(t)
	f.cartItems.AssertExpectations(t)
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	now := time.Now()
	coupon := model.Coupon{
		ID:            3,
		Code:          "SAVE10",
		Type:          model.CouponTypePercentage,
		Value:         10,
		Applicability: model.CouponApplyAll,
		StartsAt:      now.Add(-time.Hour),
		ExpiresAt:     now.Add(time.Hour),
		IsActive:      true,
	}

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7, CouponCode: "SAVE10"}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 2000, Selected: true},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9, Name: "Coffee", IsActive: true}, nil)
	f.inventories.On("DecreaseIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	f.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(coupon, nil)
	f.coupons.On("IncrementUsageIfAvailable", mock.Anything, int64(3)).Return(true, nil)

	// 4000 - 400割引 + 500送料 + 400税 = 4500
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Discount == 400 && o.Total == 4500 && o.CouponCode == "SAVE10"
	})).Return(int64(43), nil)
	f.orderItems.On("CreateBulk", mock.Anything, int64(43), mock.Anything).Return(nil)
	f.cartItems.On("DeleteByCartAndProductIDs", mock.Anything, int64(7), []int64{100}).Return(nil)
	f.carts.On("SetCouponCode", mock.Anything, int64(7), "").Return(nil)

	out, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(4500), out.Total)

	f.coupons.AssertExpectations(t)
	f.carts.AssertExpectations(t)
}

// リクエスト側のコードはカートのものより優先され、正規化される
func TestPlaceOrder_CouponFromRequestOverridesCart(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	now := time.Now()
	coupon := model.Coupon{
		ID:            3,
		Code:          "SAVE10",
		Type:          model.CouponTypePercentage,
		Value:         10,
		Applicability: model.CouponApplyAll,
		StartsAt:      now.Add(-time.Hour),
		ExpiresAt:     now.Add(time.Hour),
		IsActive:      true,
	}

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7, CouponCode: "OLD"}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 2000, Selected: true},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9, Name: "Coffee", IsActive: true}, nil)
	f.inventories.On("DecreaseIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	f.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(coupon, nil)
	f.coupons.On("IncrementUsageIfAvailable", mock.Anything, int64(3)).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.CouponCode == "SAVE10" && o.Total == 4500
	})).Return(int64(44), nil)
	f.orderItems.On("CreateBulk", mock.Anything, int64(44), mock.Anything).Return(nil)
	f.cartItems.On("DeleteByCartAndProductIDs", mock.Anything, int64(7), []int64{100}).Return(nil)
	f.carts.On("SetCouponCode", mock.Anything, int64(7), "").Return(nil)

	in := basePlaceInput()
	in.CouponCode = " save10 "
	_, err := f.uc.PlaceOrder(ctx, 1, in)
	assert.NoError(t, err)

	f.coupons.AssertNotCalled(t, "FindByCode", mock.Anything, "OLD")
}

func TestPlaceOrder_CouponUsageLimitRace(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	now := time.Now()
	coupon := model.Coupon{
		ID:            3,
		Code:          "SAVE10",
		Type:          model.CouponTypePercentage,
		Value:         10,
		Applicability: model.CouponApplyAll,
		StartsAt:      now.Add(-time.Hour),
		ExpiresAt:     now.Add(time.Hour),
		IsActive:      true,
	}

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7, CouponCode: "SAVE10"}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 1, UnitPriceSnapshot: 2000, Selected: true},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, IsActive: true}, nil)
	f.inventories.On("DecreaseIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)
	f.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(coupon, nil)
	//評価時はOKでも加算時に上限到達（同時リクエスト）
	f.coupons.On("IncrementUsageIfAvailable", mock.Anything, int64(3)).Return(false, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assertStatus(t, err, 409)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	existing := model.Order{
		ID:          42,
		OrderNumber: "ORD-existing",
		UserID:      1,
		Status:      model.OrderStatusPaid,
		Total:       4900,
	}

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(existing, true, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{}, nil)

	out, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, "ORD-existing", out.OrderNumber)

	//再送では作成も通知もしない
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, 0, len(f.notifier.events))
}

// =====================
// 状態遷移
// =====================

func TestShipOrder_ConflictWhenNotPaid(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusPending,
	}, nil)
	f.orderItems.On("ExistsBySellerID", mock.Anything, int64(42), int64(9)).Return(true, nil)
	//条件付きUPDATEが0行 = 既に別の状態
	f.orders.On("MarkShippedIf", mock.Anything, int64(42), "TRACK-1").Return(false, nil)

	err := f.uc.ShipOrder(ctx, 9, model.RoleSeller, 42, usecase.ShipOrderInput{TrackingNumber: "TRACK-1"})
	assertStatus(t, err, 409)
}

func TestShipOrder_ForbiddenForOtherSeller(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusPaid,
	}, nil)
	f.orderItems.On("ExistsBySellerID", mock.Anything, int64(42), int64(8)).Return(false, nil)

	err := f.uc.ShipOrder(ctx, 8, model.RoleSeller, 42, usecase.ShipOrderInput{TrackingNumber: "TRACK-1"})
	assertStatus(t, err, 403)
	f.orders.AssertNotCalled(t, "MarkShippedIf", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_RestocksInventory(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, OrderNumber: "ORD-x", UserID: 1, Status: model.OrderStatusPaid,
	}, nil)
	f.orders.On("MarkCancelledIf", mock.Anything, int64(42), "changed my mind").Return(true, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 100, Quantity: 2},
		{OrderID: 42, ProductID: 200, Quantity: 1},
	}, nil)
	f.inventories.On("Increase", mock.Anything, int64(100), int64(2)).Return(nil)
	f.inventories.On("Increase", mock.Anything, int64(200), int64(1)).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := f.uc.CancelOrder(ctx, 1, model.RoleUser, 42, usecase.CancelOrderInput{Reason: "changed my mind"})
	assert.NoError(t, err)

	f.inventories.AssertExpectations(t)
	assert.Equal(t, 1, len(f.notifier.events))
	assert.Equal(t, notification.EventOrderCancelled, f.notifier.events[0].Type)
}

func TestCancelOrder_ConflictAfterShipped(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusShipped,
	}, nil)
	f.orders.On("MarkCancelledIf", mock.Anything, int64(42), "").Return(false, nil)

	err := f.uc.CancelOrder(ctx, 1, model.RoleUser, 42, usecase.CancelOrderInput{})
	assertStatus(t, err, 409)

	//在庫は戻さない
	f.inventories.AssertNotCalled(t, "Increase", mock.Anything, mock.Anything, mock.Anything)
}

// 同じキーの並行再送がCreateのunique制約で衝突したら、
// 減算をロールバックして先に確定した注文を返す
func TestPlaceOrder_ConcurrentRetryReplaysExistingOrder(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	existing := model.Order{
		ID: 77, OrderNumber: "ORD-first", UserID: 1,
		Status: model.OrderStatusPaid, PaymentMethod: model.PaymentMethodCOD, Total: 4900,
	}

	f.addresses.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	//tx内の先読みでは未確定、衝突後の読み直しで確定済みが見える
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").
		Return(model.Order{}, false, nil).Once()
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.cartItems.On("ListSelectedByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 2000, Selected: true},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, SellerID: 9, Name: "Coffee", IsActive: true}, nil)
	f.inventories.On("DecreaseIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), repo.ErrAlreadyExists)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").
		Return(existing, true, nil).Once()
	f.orderItems.On("ListByOrderID", mock.Anything, int64(77)).Return([]model.OrderItem{
		{OrderID: 77, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 2000},
	}, nil)

	out, err := f.uc.PlaceOrder(ctx, 1, basePlaceInput())
	assert.NoError(t, err)
	assert.Equal(t, "ORD-first", out.OrderNumber)
	assert.Equal(t, int64(4900), out.Total)

	//再送なので明細の二重作成も通知もしない
	f.orderItems.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.notifier.events)
	f.orders.AssertExpectations(t)
}

func TestReturnOrder_NotFound(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{}, repo.ErrNotFound)

	err := f.uc.ReturnOrder(ctx, 99, 42)
	assertStatus(t, err, 404)
}

func TestReturnOrder_WritesAuditLog(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusDelivered,
	}, nil)
	f.orders.On("MarkReturnedIf", mock.Anything, int64(42)).Return(true, nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateOrderStatus && l.ResourceID == 42 && l.ActorUserID == 99
	})).Return(nil)

	err := f.uc.ReturnOrder(ctx, 99, 42)
	assert.NoError(t, err)

	f.audit.AssertExpectations(t)
}

func TestRefundOrder_RequiresReturnedStatus(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusDelivered, PaymentMethod: model.PaymentMethodCOD,
	}, nil)

	err := f.uc.RefundOrder(ctx, 99, 42, "defect")
	assertStatus(t, err, 409)
}

func TestRefundOrder_CODSuccess(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, OrderNumber: "ORD-x", UserID: 1, Status: model.OrderStatusReturned, PaymentMethod: model.PaymentMethodCOD,
	}, nil)
	f.orders.On("MarkRefundedIf", mock.Anything, int64(42)).Return(true, nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := f.uc.RefundOrder(ctx, 99, 42, "defect")
	assert.NoError(t, err)

	f.orders.AssertExpectations(t)
}

// プロバイダの返金がPENDINGのままならREFUNDEDに遷移させない
func TestRefundOrder_PendingProviderStatusNotMarked(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusReturned,
		PaymentMethod: model.PaymentMethodPayPal, CaptureID: "cap-1", Total: 4900,
	}, nil)
	f.gateway.refundFn = func(captureID string) (payment.RefundResult, error) {
		return payment.RefundResult{RefundID: "r-1", Status: "PENDING"}, nil
	}

	err := f.uc.RefundOrder(ctx, 99, 42, "defect")
	assertStatus(t, err, 502)

	f.orders.AssertNotCalled(t, "MarkRefundedIf", mock.Anything, mock.Anything)
}

func TestRefundOrder_PayPalCompletedSuccess(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, OrderNumber: "ORD-x", UserID: 1, Status: model.OrderStatusReturned,
		PaymentMethod: model.PaymentMethodPayPal, CaptureID: "cap-1", Total: 4900,
	}, nil)
	f.gateway.refundFn = func(captureID string) (payment.RefundResult, error) {
		assert.Equal(t, "cap-1", captureID)
		return payment.RefundResult{RefundID: "r-1", Status: payment.StatusCompleted}, nil
	}
	f.orders.On("MarkRefundedIf", mock.Anything, int64(42)).Return(true, nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := f.uc.RefundOrder(ctx, 99, 42, "defect")
	assert.NoError(t, err)

	f.orders.AssertExpectations(t)
}

func TestGetOrderDetail_HiddenFromStrangers(t *testing.T) {
	f := newOrdFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{ID: 42, UserID: 1}, nil)
	f.orderItems.On("ExistsBySellerID", mock.Anything, int64(42), int64(2)).Return(false, nil)

	_, err := f.uc.GetOrderDetail(ctx, 2, model.RoleUser, 42)
	assertStatus(t, err, 404)
}
