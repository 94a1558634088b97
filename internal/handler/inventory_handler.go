package handler

import (
	"context"
	"net/http"
	"strconv"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type InventoryHandler struct {
	uc *usecase.InventoryUsecase
}

func NewInventoryHandler(uc *usecase.InventoryUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

// seller: JWT+SELLER/ADMIN、admin: JWT+ADMIN
func (h *InventoryHandler) RegisterRoutes(seller *echo.Group, admin *echo.Group) {
	seller.POST("/inventory", h.Create)
	seller.GET("/inventory/:product_id", h.Get)
	seller.POST("/inventory/:product_id/adjust", h.Adjust)
	seller.POST("/inventory/:product_id/reserve", h.Reserve)
	seller.POST("/inventory/:product_id/release", h.Release)

	admin.GET("/inventory/low-stock", h.LowStock)
	admin.PUT("/inventory/:product_id", h.Set)
}

// POST /seller/inventory
func (h *InventoryHandler) Create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.CreateInventoryInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := h.uc.CreateInventory(c.Request().Context(), userID, getUserRoleFromContext(c), req)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// GET /seller/inventory/:product_id
func (h *InventoryHandler) Get(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	productID, ok := paramInt64(c, "product_id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid product_id")
	}

	res, err := h.uc.GetInventory(c.Request().Context(), userID, getUserRoleFromContext(c), productID)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /seller/inventory/:product_id/adjust
func (h *InventoryHandler) Adjust(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	productID, ok := paramInt64(c, "product_id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid product_id")
	}

	var req usecase.AdjustStockInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := h.uc.AdjustStock(c.Request().Context(), userID, getUserRoleFromContext(c), productID, req)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /seller/inventory/:product_id/reserve
func (h *InventoryHandler) Reserve(c echo.Context) error {
	return h.reserveOrRelease(c, h.uc.ReserveStock)
}

// POST /seller/inventory/:product_id/release
func (h *InventoryHandler) Release(c echo.Context) error {
	return h.reserveOrRelease(c, h.uc.ReleaseStock)
}

func (h *InventoryHandler) reserveOrRelease(c echo.Context, op func(ctx context.Context, actorID int64, role model.Role, productID int64, in usecase.ReserveStockInput) (usecase.InventoryOutput, error)) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	productID, ok := paramInt64(c, "product_id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid product_id")
	}

	var req usecase.ReserveStockInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := op(c.Request().Context(), userID, getUserRoleFromContext(c), productID, req)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// PUT /admin/inventory/:product_id
func (h *InventoryHandler) Set(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	productID, ok := paramInt64(c, "product_id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid product_id")
	}

	var req usecase.SetStockInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := h.uc.SetStock(c.Request().Context(), userID, productID, req)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GET /admin/inventory/low-stock
func (h *InventoryHandler) LowStock(c echo.Context) error {
	threshold := int64(10)
	if s := c.QueryParam("threshold"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "invalid threshold")
		}
		threshold = v
	}

	res, err := h.uc.ListLowStock(c.Request().Context(), threshold, queryIntOr(c, "limit", 50))
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}
