package handler

import (
	"net/http"
	"strconv"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// publicは認証なし、sellerはJWT+SELLER/ADMINで保護されたグループを受け取る
func (h *ProductHandler) RegisterRoutes(public *echo.Group, seller *echo.Group) {
	public.GET("/products", h.List)
	public.GET("/products/:id", h.Detail)

	seller.GET("/products", h.ListMine)
	seller.POST("/products", h.Create)
	seller.PATCH("/products/:id", h.Update)
	seller.DELETE("/products/:id", h.Delete)
}

// GET /products
func (h *ProductHandler) List(c echo.Context) error {
	in := usecase.ListProductsInput{
		Page:  queryIntOr(c, "page", 1),
		Limit: queryIntOr(c, "limit", 20),
		Q:     c.QueryParam("q"),
		Sort:  c.QueryParam("sort"),
	}

	if s := c.QueryParam("min_price"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "invalid min_price")
		}
		in.MinPrice = &v
	}
	if s := c.QueryParam("max_price"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "invalid max_price")
		}
		in.MaxPrice = &v
	}

	res, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GET /products/:id
func (h *ProductHandler) Detail(c echo.Context) error {
	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	res, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GET /seller/products
func (h *ProductHandler) ListMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.uc.ListSellerProducts(c.Request().Context(), userID, queryIntOr(c, "page", 1), queryIntOr(c, "limit", 20))
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// POST /seller/products
func (h *ProductHandler) Create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.ProductInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	res, err := h.uc.CreateProduct(c.Request().Context(), userID, req)
	if err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// PATCH /seller/products/:id
func (h *ProductHandler) Update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	var req usecase.ProductInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.uc.UpdateProduct(c.Request().Context(), userID, getUserRoleFromContext(c), id, req); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "updated"})
}

// DELETE /seller/products/:id
func (h *ProductHandler) Delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	id, ok := paramInt64(c, "id")
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.uc.DeleteProduct(c.Request().Context(), userID, getUserRoleFromContext(c), id); err != nil {
		return writeUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
}
