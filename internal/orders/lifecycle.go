package orders

import (
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
)

// successor is the forward status sequence. Cancelled is reachable from any
// non-terminal status and is handled separately.
var successor = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:    enums.OrderStatusConfirmed,
	enums.OrderStatusConfirmed:  enums.OrderStatusPreparing,
	enums.OrderStatusPreparing:  enums.OrderStatusReady,
	enums.OrderStatusReady:      enums.OrderStatusOnDelivery,
	enums.OrderStatusOnDelivery: enums.OrderStatusDelivered,
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to enums.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return true
	}
	next, ok := successor[from]
	return ok && next == to
}

// NextStatus returns the immediate successor of from, if any.
func NextStatus(from enums.OrderStatus) (enums.OrderStatus, bool) {
	next, ok := successor[from]
	return next, ok
}

// Actor is the identity asserted by the identity provider for a request.
type Actor struct {
	UserID   int64
	Role     enums.Role
	SellerID *int64
}

func (a Actor) ownsSeller(sellerID int64) bool {
	return a.SellerID != nil && *a.SellerID == sellerID
}

// canSee reports whether the actor may read the order at all. Orders the
// actor cannot see are reported as not found.
func canSee(actor Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.RoleAdmin:
		return true
	case enums.RoleBuyer:
		return order.UserID == actor.UserID
	case enums.RoleSeller:
		return actor.ownsSeller(order.SellerID)
	case enums.RoleCourier:
		return order.CourierID != nil && *order.CourierID == actor.UserID
	default:
		return false
	}
}

// authorizeTransition applies the role rules to an already legal transition.
func authorizeTransition(actor Actor, order *models.Order, to enums.OrderStatus) error {
	from := order.Status
	allowed := false
	switch actor.Role {
	case enums.RoleAdmin:
		allowed = true
	case enums.RoleBuyer:
		allowed = to == enums.OrderStatusCancelled && from == enums.OrderStatusPending
	case enums.RoleSeller:
		switch to {
		case enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusReady:
			allowed = true
		case enums.OrderStatusCancelled:
			allowed = from != enums.OrderStatusOnDelivery
		}
	case enums.RoleCourier:
		allowed = to == enums.OrderStatusOnDelivery || to == enums.OrderStatusDelivered
	}
	if !allowed {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "%s may not move an order from %s to %s", actor.Role, from, to)
	}
	return nil
}

func illegalTransition(from, to enums.OrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "cannot move order from %s to %s", from, to).
		WithDetails(map[string]string{"from": from.String(), "to": to.String()})
}
