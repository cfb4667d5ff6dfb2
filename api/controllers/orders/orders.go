package orders

import (
	"context"
	"net/http"

	"github.com/angelmondragon/foodhall-backend/api/responses"
	"github.com/angelmondragon/foodhall-backend/api/validators"
	internalorders "github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

// Place converts the caller's cart into an order.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), internalorders.PlaceOrderInput{
			UserID:        actor.UserID,
			AddressID:     payload.AddressID,
			PaymentMethod: payload.PaymentMethod,
			CouponCode:    payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// List pages the caller's orders from the perspective of their role.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var list func(context.Context, int64, internalorders.ListParams) (*internalorders.OrderPage, error)
		ownerID := actor.UserID
		switch actor.Role {
		case enums.RoleSeller:
			if actor.SellerID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing"))
				return
			}
			list, ownerID = svc.ListForSeller, *actor.SellerID
		case enums.RoleCourier:
			list = svc.ListForCourier
		default:
			list = svc.ListForUser
		}

		page, err := list(r.Context(), ownerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderPageResponse(page))
	}
}

func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// Advance moves an order to the requested status. Which transitions the
// caller may drive is decided by the lifecycle rules for their role.
func Advance(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Advance(r.Context(), actor, orderID, payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func AssignCourier(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AssignCourier(r.Context(), actor, orderID, payload.CourierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func actorAndOrderID(r *http.Request) (internalorders.Actor, int64, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return internalorders.Actor{}, 0, err
	}
	orderID, err := validators.ParsePathID(r, "orderId")
	if err != nil {
		return internalorders.Actor{}, 0, err
	}
	return actor, orderID, nil
}
