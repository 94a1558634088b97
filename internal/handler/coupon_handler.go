package handler

import (
	"net/http"
	"time"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CouponHandler struct {
	uc *usecase.CouponUsecase
}

func NewCouponHandler(uc *usecase.CouponUsecase) *CouponHandler {
	return &CouponHandler{uc: uc}
}

// 管理者限定グループ配下に登録する
func (h *CouponHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/coupons", h.List)
	admin.POST("/coupons", h.Create)
	admin.PATCH("/coupons/:code", h.Update)
}

type couponRequest struct {
	Code          string  `json:"code"`
	Type          string  `json:"type"`
	Value         int64   `json:"value"`
	MinPurchase   *int64  `json:"min_purchase"`
	MaxDiscount   *int64  `json:"max_discount"`
	Applicability string  `json:"applicability"`
	ProductIDs    []int64 `json:"product_ids"`
	CategoryIDs   []int64 `json:"category_ids"`
	UsageLimit    *int64  `json:"usage_limit"`
	StartsAt      string  `json:"starts_at"`
	ExpiresAt     string  `json:"expires_at"`
	IsActive      bool    `json:"is_active"`
}

func (r couponRequest) toInput() (usecase.CouponInput, error) {
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return usecase.CouponInput{}, err
	}
	expiresAt, err := time.Parse(time.RFC3339, r.ExpiresAt)
	if err != nil {
		return usecase.CouponInput{}, err
	}

	return usecase.CouponInput{
		Code:          r.Code,
		Type:          r.Type,
		Value:         r.Value,
		MinPurchase:   r.MinPurchase,
		MaxDiscount:   r.MaxDiscount,
		Applicability: r.Applicability,
		ProductIDs:    r.ProductIDs,
		CategoryIDs:   r.CategoryIDs,
		UsageLimit:    r.UsageLimit,
		StartsAt:      startsAt,
		ExpiresAt:     expiresAt,
		IsActive:      r.IsActive,
	}, nil
}

// GET /admin/coupons
func (h *CouponHandler) List(c echo.Context) error {
	res, err := h.uc.List(c.Request().Context(), queryIntOr(c, "page", 1), queryIntOr(c, "limit", 20))
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /admin/coupons
func (h *CouponHandler) Create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	in, err := req.toInput()
	if err != nil {
		return writeError(c, http.StatusBadRequest, "starts_at/expires_at must be RFC3339")
	}

	res, uerr := h.uc.Create(c.Request().Context(), userID, in)
	if uerr != nil {
		return writeUsecaseError(c, uerr)
	}

	return c.JSON(http.StatusCreated, res)
}

// PATCH /admin/coupons/:code
func (h *CouponHandler) Update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	code := c.Param("code")
	if code == "" {
		return writeError(c, http.StatusBadRequest, "invalid code")
	}

	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	in, err := req.toInput()
	if err != nil {
		return writeError(c, http.StatusBadRequest, "starts_at/expires_at must be RFC3339")
	}

	if uerr := h.uc.Update(c.Request().Context(), userID, code, in); uerr != nil {
		return writeUsecaseError(c, uerr)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "updated"})
}
