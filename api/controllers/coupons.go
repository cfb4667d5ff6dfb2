package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/api/responses"
	"github.com/angelmondragon/foodhall-backend/api/validators"
	"github.com/angelmondragon/foodhall-backend/internal/coupons"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

type CouponResponse struct {
	ID          int64              `json:"id"`
	Code        string             `json:"code"`
	Type        enums.DiscountType `json:"type"`
	Value       string             `json:"value"`
	MaxDiscount *string            `json:"max_discount,omitempty"`
	MinOrder    *string            `json:"min_order,omitempty"`
	AllSellers  bool               `json:"all_sellers"`
	SellerIDs   []int64            `json:"seller_ids,omitempty"`
	Active      bool               `json:"active"`
	ValidFrom   *time.Time         `json:"valid_from,omitempty"`
	ValidUntil  *time.Time         `json:"valid_until,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type CouponValidationResponse struct {
	Code     string `json:"code"`
	SellerID int64  `json:"seller_id"`
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
}

type validateCouponRequest struct {
	Code     string          `json:"code" validate:"required,max=64,coupon_code"`
	SellerID int64           `json:"seller_id" validate:"required,gt=0"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type createCouponRequest struct {
	Code        string             `json:"code" validate:"required,max=64,coupon_code"`
	Type        enums.DiscountType `json:"type" validate:"required,oneof=percentage fixed"`
	Value       decimal.Decimal    `json:"value"`
	MaxDiscount *decimal.Decimal   `json:"max_discount"`
	MinOrder    *decimal.Decimal   `json:"min_order"`
	SellerIDs   []int64            `json:"seller_ids" validate:"omitempty,dive,gt=0"`
	ValidFrom   *time.Time         `json:"valid_from"`
	ValidUntil  *time.Time         `json:"valid_until"`
}

type updateCouponRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func newCouponResponse(c coupons.Coupon) CouponResponse {
	return CouponResponse{
		ID:          c.ID,
		Code:        c.Code,
		Type:        c.Type,
		Value:       types.FormatMoney(c.Value),
		MaxDiscount: types.FormatMoneyPtr(c.MaxDiscount),
		MinOrder:    types.FormatMoneyPtr(c.MinOrder),
		AllSellers:  c.Scope.IsAll(),
		SellerIDs:   c.Scope.SellerIDs(),
		Active:      c.Active,
		ValidFrom:   c.ValidFrom,
		ValidUntil:  c.ValidUntil,
		CreatedAt:   c.CreatedAt,
	}
}

// ValidateCoupon checks a code against a seller and subtotal and reports the
// discount it would grant.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload validateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.OptionalMoney("subtotal", &payload.Subtotal); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Validate(r.Context(), payload.Code, payload.SellerID, payload.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, CouponValidationResponse{
			Code:     coupon.Code,
			SellerID: payload.SellerID,
			Subtotal: types.FormatMoney(payload.Subtotal),
			Discount: types.FormatMoney(coupon.Discount(payload.Subtotal)),
		})
	}
}

func AdminListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]CouponResponse, 0, len(list))
		for _, c := range list {
			out = append(out, newCouponResponse(c))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for field, amount := range map[string]*decimal.Decimal{"max_discount": payload.MaxDiscount, "min_order": payload.MinOrder} {
			if err := validators.OptionalMoney(field, amount); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		coupon, err := svc.Create(r.Context(), coupons.CreateInput{
			Code:        payload.Code,
			Type:        payload.Type,
			Value:       payload.Value,
			MaxDiscount: payload.MaxDiscount,
			MinOrder:    payload.MinOrder,
			SellerIDs:   payload.SellerIDs,
			ValidFrom:   payload.ValidFrom,
			ValidUntil:  payload.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(*coupon))
	}
}

// AdminUpdateCoupon toggles a coupon on or off.
func AdminUpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.SetActive(r.Context(), code, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCouponResponse(*coupon))
	}
}
