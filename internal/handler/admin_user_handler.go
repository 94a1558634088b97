package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	uc       *usecase.AuthUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	// ★ /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(h.cfg),
		middleware.TokenVersionGuard(h.userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.POST("/users/:id/force-logout", h.ForceLogout)
	admin.PATCH("/users/:id/role", h.SetRole)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	idStr := c.Param("id")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID <= 0 {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid user_id"))
	}

	res, uerr := h.uc.ForceLogout(c.Request().Context(), userID)
	if uerr != nil {
		return h.writeAdminError(c, uerr)
	}

	return c.JSON(http.StatusOK, res)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// PATCH /admin/users/:id/role
// 出品者権限の付与・剥奪。SELLERはこの操作か登録時の選択でしか付かない。
func (h *AdminUserHandler) SetRole(c echo.Context) error {
	idStr := c.Param("id")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID <= 0 {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid user_id"))
	}

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("validation error"))
	}

	res, uerr := h.uc.SetUserRole(c.Request().Context(), userID, req.Role)
	if uerr != nil {
		return h.writeAdminError(c, uerr)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AdminUserHandler) writeAdminError(c echo.Context, err error) error {
	switch err {
	case usecase.ErrValidation, validator.ErrInvalidInput:
		return c.JSON(http.StatusBadRequest, errorJSON("validation error"))
	case usecase.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, errorJSON("user not found"))
	default:
		return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
	}
}
