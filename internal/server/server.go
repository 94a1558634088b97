package server

import (
	"net/http"

	"app/internal/config"
	"app/internal/handler"
	appmw "app/internal/middleware"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Address   *handler.AddressHandler
	AdminUser *handler.AdminUserHandler
	Product   *handler.ProductHandler
	Cart      *handler.CartHandler
	Order     *handler.OrderHandler
	Coupon    *handler.CouponHandler
	Inventory *handler.InventoryHandler
}

// New はEchoを組み立てて全ルートを登録する。
// グループ構成:
//   - /            認証なし（商品閲覧・auth）
//   - 認証あり      JWT + token_version一致
//   - /seller      上記 + SELLER/ADMIN
//   - /admin       上記 + ADMIN
func New(cfg config.Config, userRepo repository.UserRepository, h Handlers, log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Idempotency-Key", "X-CSRF-Token"},
		AllowCredentials: true,
	}))

	//リクエストログ（logrus）
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method": v.Method,
				"uri":    v.URI,
				"status": v.Status,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
			} else {
				entry.Info("request")
			}
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	public := e.Group("")

	authed := e.Group("",
		appmw.AuthJWT(cfg),
		appmw.TokenVersionGuard(userRepo),
	)

	seller := e.Group("/seller",
		appmw.AuthJWT(cfg),
		appmw.TokenVersionGuard(userRepo),
		appmw.SellerRoleGuard(),
	)

	admin := e.Group("/admin",
		appmw.AuthJWT(cfg),
		appmw.TokenVersionGuard(userRepo),
		appmw.AdminRoleGuard(),
	)

	h.Auth.RegisterRoutes(e)
	h.AdminUser.RegisterRoutes(e)
	h.Address.RegisterRoutes(authed)
	h.Product.RegisterRoutes(public, seller)
	h.Cart.RegisterRoutes(authed)
	h.Order.RegisterRoutes(authed, seller, admin)
	h.Coupon.RegisterRoutes(admin)
	h.Inventory.RegisterRoutes(seller, admin)

	return e
}
