package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// user: JWT必須、seller: JWT+SELLER/ADMIN、admin: JWT+ADMIN
func (h *OrderHandler) RegisterRoutes(user *echo.Group, seller *echo.Group, admin *echo.Group) {
	user.POST("/orders", h.Place)
	user.GET("/orders", h.ListMine)
	user.GET("/orders/:id", h.Detail)
	user.POST("/orders/:id/payment", h.StartPayment)
	user.POST("/orders/:id/pay", h.Pay)
	user.POST("/orders/:id/deliver", h.Deliver)
	user.POST("/orders/:id/cancel", h.Cancel)

	seller.GET("/orders", h.ListSeller)
	seller.POST("/orders/:id/ship", h.Ship)

	admin.GET("/orders", h.ListAdmin)
	admin.POST("/orders/:id/return", h.Return)
	admin.POST("/orders/:id/refund", h.Refund)
}

// POST /orders
// Idempotency-Keyヘッダ必須。同じキーの再送は最初の注文をそのまま返す。
func (h *OrderHandler) Place(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.PlaceOrderInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}
	req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")

	res, err := h.uc.PlaceOrder(c.Request().Context(), userID, req)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// GET /orders
func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.uc.ListMyOrders(c.Request().Context(), userID, queryIntOr(c, "page", 1), queryIntOr(c, "limit", 20))
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GET /orders/:id
func (h *OrderHandler) Detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	res, err := h.uc.GetOrderDetail(c.Request().Context(), userID, getUserRoleFromContext(c), id)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /orders/:id/payment
func (h *OrderHandler) StartPayment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	res, err := h.uc.StartPayment(c.Request().Context(), userID, id)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /orders/:id/pay
func (h *OrderHandler) Pay(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	res, err := h.uc.PayOrder(c.Request().Context(), userID, id)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /seller/orders/:id/ship
func (h *OrderHandler) Ship(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	var req usecase.ShipOrderInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.uc.ShipOrder(c.Request().Context(), userID, getUserRoleFromContext(c), id, req); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "shipped"})
}

// POST /orders/:id/deliver
func (h *OrderHandler) Deliver(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.uc.DeliverOrder(c.Request().Context(), userID, getUserRoleFromContext(c), id); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "delivered"})
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	var req usecase.CancelOrderInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.uc.CancelOrder(c.Request().Context(), userID, getUserRoleFromContext(c), id, req); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "cancelled"})
}

// GET /seller/orders
func (h *OrderHandler) ListSeller(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.uc.ListSellerOrders(c.Request().Context(), userID, queryIntOr(c, "page", 1), queryIntOr(c, "limit", 20))
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GET /admin/orders
func (h *OrderHandler) ListAdmin(c echo.Context) error {
	in := usecase.AdminOrderListInput{
		Page:   queryIntOr(c, "page", 1),
		Limit:  queryIntOr(c, "limit", 20),
		Status: c.QueryParam("status"),
	}

	if s := c.QueryParam("user_id"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 {
			return writeError(c, http.StatusBadRequest, "invalid user_id")
		}
		in.UserID = &v
	}
	if s := c.QueryParam("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "invalid from")
		}
		in.From = &t
	}
	if s := c.QueryParam("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "invalid to")
		}
		in.To = &t
	}

	res, err := h.uc.ListAdminOrders(c.Request().Context(), in)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /admin/orders/:id/return
func (h *OrderHandler) Return(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.uc.ReturnOrder(c.Request().Context(), userID, id); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "returned"})
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// POST /admin/orders/:id/refund
func (h *OrderHandler) Refund(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.uc.RefundOrder(c.Request().Context(), userID, id, req.Reason); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "refunded"})
}
