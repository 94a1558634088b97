package handler

import (
	"net/http"
	"os"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	cfg          config.Config
	userRepo     repository.UserRepository
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(cfg config.Config, userRepo repository.UserRepository, uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		userRepo:     userRepo,
		uc:           uc,
		refreshTTL:   30 * 24 * time.Hour,
		cookieSecure: envBool("COOKIE_SECURE", true),
	}
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh)
	e.POST("/auth/logout", h.Logout)

	me := e.Group("/auth", middleware.AuthJWT(h.cfg), middleware.TokenVersionGuard(h.userRepo))
	me.GET("/me", h.Me)
}

// POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	userAgent := c.Request().Header.Get("User-Agent")
	ip := c.RealIP()

	res, err := h.uc.Login(c.Request().Context(), req, userAgent, ip)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)
	h.setCsrfCookie(c, res.CsrfTokenPlain)

	return c.JSON(http.StatusOK, res.Body)
}

// POST /auth/refresh
// refresh tokenはhttpOnly cookieで受ける（ボディには載せない）
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie("refresh")
	if err != nil || cookie.Value == "" {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	userAgent := c.Request().Header.Get("User-Agent")
	ip := c.RealIP()

	res, uerr := h.uc.Refresh(c.Request().Context(), cookie.Value, userAgent, ip)
	if uerr != nil {
		//replay検知などは既存cookieも消す
		h.clearAuthCookies(c)
		return h.writeAuthError(c, uerr)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)
	h.setCsrfCookie(c, res.CsrfTokenPlain)

	return c.JSON(http.StatusOK, res.Body)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie, err := c.Cookie("refresh")
	if err != nil || cookie.Value == "" {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	res, uerr := h.uc.Logout(c.Request().Context(), cookie.Value)
	if uerr != nil {
		return h.writeAuthError(c, uerr)
	}

	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, res)
}

// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, plain string) {
	c.SetCookie(&http.Cookie{
		Name:     "refresh",
		Value:    plain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

// csrfはJSから読める（httpOnlyにしない）
func (h *AuthHandler) setCsrfCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     "csrf_token",
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	for _, name := range []string{"refresh", "csrf_token"} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: name == "refresh",
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// auth系のsentinel errorをHTTPステータスに変換する
func (h *AuthHandler) writeAuthError(c echo.Context, err error) error {
	switch err {
	case usecase.ErrValidation, validator.ErrInvalidInput, validator.ErrInvalidRefresh:
		return writeError(c, http.StatusBadRequest, "validation error")
	case validator.ErrEmailAlreadyUsed, usecase.ErrConflict:
		return writeError(c, http.StatusConflict, "conflict")
	case usecase.ErrUnauthorized, usecase.ErrSecurityIncident:
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	case usecase.ErrForbidden:
		return writeError(c, http.StatusForbidden, "forbidden")
	default:
		return writeError(c, http.StatusInternalServerError, "internal error")
	}
}
