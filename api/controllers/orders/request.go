package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/foodhall-backend/api/middleware"
	"github.com/angelmondragon/foodhall-backend/api/validators"
	internalorders "github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/pagination"
)

type placeOrderRequest struct {
	AddressID     int64               `json:"address_id" validate:"required,gt=0"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	CouponCode    string              `json:"coupon_code" validate:"omitempty,max=64,coupon_code"`
}

type advanceRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,order_status"`
}

type assignRequest struct {
	CourierID int64 `json:"courier_id" validate:"required,gt=0"`
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.UserID <= 0 {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return internalorders.Actor{
		UserID:   identity.UserID,
		Role:     identity.Role,
		SellerID: identity.SellerID,
	}, nil
}

func parseListParams(r *http.Request) (internalorders.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internalorders.ListParams{}, err
	}
	params := internalorders.ListParams{
		Params: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return internalorders.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").WithDetails(map[string]any{"field": "status"})
		}
		params.Status = &status
	}
	return params, nil
}
