package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

//出品者向けエンドポイント用。SELLERとADMINだけ許可します。

func SellerRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if role != "SELLER" && role != "ADMIN" {
				return c.JSON(http.StatusForbidden, errorJSON("seller only"))
			}

			return next(c)
		}
	}
}
