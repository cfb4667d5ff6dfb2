package cart

import (
	cartdto "github.com/angelmondragon/foodhall-backend/api/controllers/cart/dto"
	cartsvc "github.com/angelmondragon/foodhall-backend/internal/cart"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

func newCartView(view *cartsvc.View) cartdto.CartView {
	lines := make([]cartdto.CartLine, 0, len(view.Lines))
	for _, line := range view.Lines {
		lines = append(lines, cartdto.CartLine{
			MenuItemID: line.MenuItemID,
			SellerID:   line.SellerID,
			Name:       line.Name,
			UnitPrice:  types.FormatMoney(line.UnitPrice),
			Quantity:   line.Quantity,
			LineTotal:  types.FormatMoney(line.LineTotal),
			Available:  line.Available,
		})
	}

	return cartdto.CartView{
		UserID:      view.UserID,
		Lines:       lines,
		Subtotal:    types.FormatMoney(view.Quote.Subtotal),
		DeliveryFee: types.FormatMoney(view.Quote.DeliveryFee),
		Discount:    types.FormatMoney(view.Quote.DiscountAmount),
		Total:       types.FormatMoney(view.Quote.Total),
		CouponCode:  view.CouponCode,
	}
}
