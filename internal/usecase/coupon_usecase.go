package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/lib/pq"
)

type CouponUsecase struct {
	couponRepo   repo.CouponRepository
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	auditRepo    repo.AuditLogRepository
}

func NewCouponUsecase(
	couponRepo repo.CouponRepository,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
) *CouponUsecase {
	return &CouponUsecase{
		couponRepo:   couponRepo,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		auditRepo:    auditRepo,
	}
}

type CouponInput struct {
	Code          string
	Type          string
	Value         int64
	MinPurchase   *int64
	MaxDiscount   *int64
	Applicability string
	ProductIDs    []int64
	CategoryIDs   []int64
	UsageLimit    *int64
	StartsAt      time.Time
	ExpiresAt     time.Time
	IsActive      bool
}

type CouponListOutput struct {
	Items []model.Coupon `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// プレビュー検証。カートの注文対象明細に対して評価する。
// ここでは使用回数を消費しない（消費は注文確定時のみ）。
func (u *CouponUsecase) ValidateForCart(ctx context.Context, userID int64, code string) (CouponEvaluation, error) {
	if userID <= 0 {
		return CouponEvaluation{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	//コードは保存時と同じく大文字で照合する（適用・確定パスと揃える）
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return CouponEvaluation{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	coupon, err := u.couponRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		//存在しないコードはvalid=falseで返す（404にしない）
		return CouponEvaluation{Message: "coupon not found"}, nil
	}
	if err != nil {
		return CouponEvaluation{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return CouponEvaluation{Message: "cart empty"}, nil
	}
	if err != nil {
		return CouponEvaluation{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListSelectedByCartID(ctx, cart.ID)
	if err != nil {
		return CouponEvaluation{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(items) == 0 {
		return CouponEvaluation{Message: "cart empty"}, nil
	}

	priced := make([]PricedItem, 0, len(items))
	for _, ci := range items {
		p, err := u.productRepo.FindByID(ctx, ci.ProductID)
		if err != nil || !p.IsActive {
			continue
		}
		priced = append(priced, PricedItem{
			ProductID:    p.ID,
			CategoryID:   p.CategoryID,
			UnitPrice:    ci.UnitPriceSnapshot,
			Quantity:     ci.Quantity,
			FreeShipping: p.FreeShipping,
		})
	}
	if len(priced) == 0 {
		return CouponEvaluation{Message: "cart empty"}, nil
	}

	return EvaluateCoupon(coupon, priced, time.Now()), nil
}

// 管理者のクーポン作成
func (u *CouponUsecase) Create(ctx context.Context, adminID int64, in CouponInput) (model.Coupon, error) {
	if adminID <= 0 {
		return model.Coupon{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateCouponInput(in); err != nil {
		return model.Coupon{}, err
	}

	now := time.Now()
	c, err := u.couponRepo.Create(ctx, model.Coupon{
		Code:          strings.ToUpper(strings.TrimSpace(in.Code)),
		Type:          model.CouponType(in.Type),
		Value:         in.Value,
		MinPurchase:   in.MinPurchase,
		MaxDiscount:   in.MaxDiscount,
		Applicability: model.CouponApplicability(in.Applicability),
		ProductIDs:    pq.Int64Array(in.ProductIDs),
		CategoryIDs:   pq.Int64Array(in.CategoryIDs),
		UsageLimit:    in.UsageLimit,
		UsageCount:    0,
		StartsAt:      in.StartsAt,
		ExpiresAt:     in.ExpiresAt,
		IsActive:      in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err == repo.ErrAlreadyExists {
		return model.Coupon{}, NewHTTPError(http.StatusConflict, "code already exists")
	}
	if err != nil {
		return model.Coupon{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionUpdateCoupon,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   c.ID,
		BeforeJSON:   `{}`,
		AfterJSON:    mustJSON(map[string]interface{}{"code": c.Code, "type": c.Type, "value": c.Value}),
		CreatedAt:    now,
	})

	return c, nil
}

// 管理者のクーポン更新（codeは変更不可）
func (u *CouponUsecase) Update(ctx context.Context, adminID int64, code string, in CouponInput) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.Code = code
	if err := validateCouponInput(in); err != nil {
		return err
	}

	existing, err := u.couponRepo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	before := mustJSON(map[string]interface{}{"type": existing.Type, "value": existing.Value, "is_active": existing.IsActive})

	existing.Type = model.CouponType(in.Type)
	existing.Value = in.Value
	existing.MinPurchase = in.MinPurchase
	existing.MaxDiscount = in.MaxDiscount
	existing.Applicability = model.CouponApplicability(in.Applicability)
	existing.ProductIDs = pq.Int64Array(in.ProductIDs)
	existing.CategoryIDs = pq.Int64Array(in.CategoryIDs)
	existing.UsageLimit = in.UsageLimit
	existing.StartsAt = in.StartsAt
	existing.ExpiresAt = in.ExpiresAt
	existing.IsActive = in.IsActive

	if err := u.couponRepo.Update(ctx, existing); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionUpdateCoupon,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   existing.ID,
		BeforeJSON:   before,
		AfterJSON:    mustJSON(map[string]interface{}{"type": existing.Type, "value": existing.Value, "is_active": existing.IsActive}),
		CreatedAt:    time.Now(),
	})

	return nil
}

func (u *CouponUsecase) List(ctx context.Context, page int, limit int) (CouponListOutput, error) {
	if page < 1 {
		return CouponListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return CouponListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, total, err := u.couponRepo.List(ctx, page, limit)
	if err != nil {
		return CouponListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CouponListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func validateCouponInput(in CouponInput) error {
	if strings.TrimSpace(in.Code) == "" || len(in.Code) > 64 {
		return NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	switch model.CouponType(in.Type) {
	case model.CouponTypePercentage:
		if in.Value < 1 || in.Value > 100 {
			return NewHTTPError(http.StatusBadRequest, "percentage value must be 1-100")
		}
	case model.CouponTypeFixed:
		if in.Value <= 0 {
			return NewHTTPError(http.StatusBadRequest, "fixed value must be > 0")
		}
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid type")
	}

	switch model.CouponApplicability(in.Applicability) {
	case model.CouponApplyAll:
	case model.CouponApplySpecificProducts:
		if len(in.ProductIDs) == 0 {
			return NewHTTPError(http.StatusBadRequest, "product_ids required")
		}
	case model.CouponApplySpecificCategories:
		if len(in.CategoryIDs) == 0 {
			return NewHTTPError(http.StatusBadRequest, "category_ids required")
		}
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid applicability")
	}

	if in.MinPurchase != nil && *in.MinPurchase < 0 {
		return NewHTTPError(http.StatusBadRequest, "min_purchase must be >= 0")
	}
	if in.MaxDiscount != nil && *in.MaxDiscount <= 0 {
		return NewHTTPError(http.StatusBadRequest, "max_discount must be > 0")
	}
	if in.UsageLimit != nil && *in.UsageLimit <= 0 {
		return NewHTTPError(http.StatusBadRequest, "usage_limit must be > 0")
	}
	if !in.ExpiresAt.After(in.StartsAt) {
		return NewHTTPError(http.StatusBadRequest, "expires_at must be after starts_at")
	}

	return nil
}
