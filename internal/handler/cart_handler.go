package handler

import (
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartUC   *usecase.CartUsecase
	couponUC *usecase.CouponUsecase
}

func NewCartHandler(cartUC *usecase.CartUsecase, couponUC *usecase.CouponUsecase) *CartHandler {
	return &CartHandler{cartUC: cartUC, couponUC: couponUC}
}

// JWT必須グループ配下に登録する
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/cart", h.Get)
	g.POST("/cart/items", h.AddItem)
	g.PATCH("/cart/items/:id", h.UpdateItem)
	g.DELETE("/cart/items/:id", h.DeleteItem)
	g.DELETE("/cart", h.Clear)
	g.POST("/cart/coupon", h.ApplyCoupon)
	g.DELETE("/cart/coupon", h.RemoveCoupon)
	g.POST("/coupons/validate", h.ValidateCoupon)
}

// GET /cart
func (h *CartHandler) Get(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.cartUC.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.AddToCartInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.cartUC.AddToCart(c.Request().Context(), userID, req); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "added"})
}

// PATCH /cart/items/:id
func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	var req usecase.UpdateCartItemInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.cartUC.UpdateCartItem(c.Request().Context(), userID, id, req); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "updated"})
}

// DELETE /cart/items/:id
func (h *CartHandler) DeleteItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.cartUC.DeleteCartItem(c.Request().Context(), userID, id); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
}

// DELETE /cart
func (h *CartHandler) Clear(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	if err := h.cartUC.ClearCart(c.Request().Context(), userID); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "cleared"})
}

type couponCodeRequest struct {
	Code string `json:"code"`
}

// POST /cart/coupon
func (h *CartHandler) ApplyCoupon(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req couponCodeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.cartUC.ApplyCoupon(c.Request().Context(), userID, req.Code); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "applied"})
}

// DELETE /cart/coupon
func (h *CartHandler) RemoveCoupon(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	if err := h.cartUC.RemoveCoupon(c.Request().Context(), userID); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "removed"})
}

// POST /coupons/validate
// 適用前のプレビュー。usage_countは消費しない。
func (h *CartHandler) ValidateCoupon(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req couponCodeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := h.couponUC.ValidateForCart(c.Request().Context(), userID, req.Code)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}
