package handler

import (
	"net/http"
	"strconv"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

func writeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorJSON(msg))
}

// usecaseのHTTPErrorをそのままステータスに変換する
func writeUsecaseError(c echo.Context, err error) error {
	if he, ok := usecase.AsHTTPError(err); ok {
		return writeError(c, he.Status, he.Message)
	}
	return writeError(c, http.StatusInternalServerError, "internal error")
}

// AuthJWTミドルウェアが入れたuser_idを取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	return id, ok && id > 0
}

func getUserRoleFromContext(c echo.Context) model.Role {
	v := c.Get(middleware.CtxUserRoleKey)
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return model.Role(s)
}

func paramInt64(c echo.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	return v, err == nil && v > 0
}

func queryIntOr(c echo.Context, name string, def int) int {
	s := c.QueryParam(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
