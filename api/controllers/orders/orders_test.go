package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/api/middleware"
	internalorders "github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
)

type stubOrderService struct {
	order *models.Order
	page  *internalorders.OrderPage
	err   error

	placed      internalorders.PlaceOrderInput
	actor       internalorders.Actor
	advancedTo  enums.OrderStatus
	courierID   int64
	listedBy    string
	listedOwner int64
	listParams  internalorders.ListParams
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, input internalorders.PlaceOrderInput) (*models.Order, error) {
	s.placed = input
	return s.order, s.err
}

func (s *stubOrderService) Advance(ctx context.Context, actor internalorders.Actor, orderID int64, to enums.OrderStatus) (*models.Order, error) {
	s.actor, s.advancedTo = actor, to
	return s.order, s.err
}

func (s *stubOrderService) Cancel(ctx context.Context, actor internalorders.Actor, orderID int64) (*models.Order, error) {
	s.actor, s.advancedTo = actor, enums.OrderStatusCancelled
	return s.order, s.err
}

func (s *stubOrderService) AssignCourier(ctx context.Context, actor internalorders.Actor, orderID, courierID int64) (*models.Order, error) {
	s.actor, s.courierID = actor, courierID
	return s.order, s.err
}

func (s *stubOrderService) Get(ctx context.Context, actor internalorders.Actor, orderID int64) (*models.Order, error) {
	s.actor = actor
	return s.order, s.err
}

func (s *stubOrderService) ListForUser(ctx context.Context, userID int64, params internalorders.ListParams) (*internalorders.OrderPage, error) {
	s.listedBy, s.listedOwner, s.listParams = "user", userID, params
	return s.page, s.err
}

func (s *stubOrderService) ListForSeller(ctx context.Context, sellerID int64, params internalorders.ListParams) (*internalorders.OrderPage, error) {
	s.listedBy, s.listedOwner, s.listParams = "seller", sellerID, params
	return s.page, s.err
}

func (s *stubOrderService) ListForCourier(ctx context.Context, courierID int64, params internalorders.ListParams) (*internalorders.OrderPage, error) {
	s.listedBy, s.listedOwner, s.listParams = "courier", courierID, params
	return s.page, s.err
}

func placedOrder() *models.Order {
	return &models.Order{
		ID:             11,
		OrderNumber:    "FH-20260504-0A1B2C3D",
		UserID:         7,
		SellerID:       1,
		AddressID:      3,
		PaymentMethod:  enums.PaymentMethodWallet,
		Status:         enums.OrderStatusPending,
		Subtotal:       decimal.RequireFromString("220"),
		DeliveryFee:    decimal.RequireFromString("29.99"),
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.RequireFromString("249.99"),
		Lines: []models.OrderLine{{
			MenuItemID: 1,
			Name:       "Adana Kebab",
			UnitPrice:  decimal.RequireFromString("110"),
			Quantity:   2,
			LineTotal:  decimal.RequireFromString("220"),
		}},
	}
}

func requestAs(method, target, body string, identity middleware.Identity) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func withOrderParam(req *http.Request, orderID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return envelope.Error.Code
}

var buyer = middleware.Identity{UserID: 7, Role: enums.RoleBuyer}

func TestPlaceOrderSuccess(t *testing.T) {
	svc := &stubOrderService{order: placedOrder()}
	handler := Place(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestAs(http.MethodPost, "/api/v1/orders", `{"address_id":3,"payment_method":"wallet","coupon_code":"SAVE20"}`, buyer))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.placed.UserID != 7 || svc.placed.AddressID != 3 || svc.placed.PaymentMethod != enums.PaymentMethodWallet || svc.placed.CouponCode != "SAVE20" {
		t.Fatalf("unexpected placement input %+v", svc.placed)
	}

	var envelope struct {
		Data OrderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.TotalAmount != "249.99" || envelope.Data.Subtotal != "220.00" {
		t.Fatalf("unexpected amounts %+v", envelope.Data)
	}
	if len(envelope.Data.Lines) != 1 || envelope.Data.Lines[0].UnitPrice != "110.00" {
		t.Fatalf("unexpected lines %+v", envelope.Data.Lines)
	}
}

func TestPlaceOrderRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubOrderService{order: placedOrder()}
	resp := httptest.NewRecorder()
	Place(svc, nil).ServeHTTP(resp, requestAs(http.MethodPost, "/api/v1/orders", `{"address_id":3,"payment_method":"barter"}`, buyer))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.placed.UserID != 0 {
		t.Fatal("service should not be called")
	}
}

func TestPlaceOrderSurfacesDomainErrors(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeEmptyCart, http.StatusUnprocessableEntity},
		{pkgerrors.CodeInsufficientFunds, http.StatusUnprocessableEntity},
		{pkgerrors.CodeCouponNotFound, http.StatusNotFound},
		{pkgerrors.CodeCouponNotApplicable, http.StatusUnprocessableEntity},
		{pkgerrors.CodeMinimumOrderNotMet, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		Place(&stubOrderService{err: pkgerrors.New(tc.code, "rejected")}, nil).
			ServeHTTP(resp, requestAs(http.MethodPost, "/api/v1/orders", `{"address_id":3,"payment_method":"cash"}`, buyer))
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.code, tc.status, resp.Code)
		}
		if got := errorCode(t, resp); got != string(tc.code) {
			t.Fatalf("expected code %s got %s", tc.code, got)
		}
	}
}

func TestListUsesRolePerspective(t *testing.T) {
	sellerID := int64(2)
	cases := []struct {
		identity  middleware.Identity
		wantBy    string
		wantOwner int64
	}{
		{buyer, "user", 7},
		{middleware.Identity{UserID: 20, Role: enums.RoleSeller, SellerID: &sellerID}, "seller", 2},
		{middleware.Identity{UserID: 30, Role: enums.RoleCourier}, "courier", 30},
	}
	for _, tc := range cases {
		svc := &stubOrderService{page: &internalorders.OrderPage{Orders: []models.Order{*placedOrder()}, NextCursor: "next"}}
		resp := httptest.NewRecorder()
		List(svc, nil).ServeHTTP(resp, requestAs(http.MethodGet, "/api/v1/orders?status=pending&limit=5", "", tc.identity))

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", tc.identity.Role, resp.Code)
		}
		if svc.listedBy != tc.wantBy || svc.listedOwner != tc.wantOwner {
			t.Fatalf("%s: listed by %s/%d", tc.identity.Role, svc.listedBy, svc.listedOwner)
		}
		if svc.listParams.Limit != 5 || svc.listParams.Status == nil || *svc.listParams.Status != enums.OrderStatusPending {
			t.Fatalf("unexpected params %+v", svc.listParams)
		}
	}
}

func TestListRejectsBadStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubOrderService{}, nil).ServeHTTP(resp, requestAs(http.MethodGet, "/api/v1/orders?status=lost", "", buyer))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdvanceIllegalTransition(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeIllegalTransition, "cannot move order from delivered to preparing")}
	sellerID := int64(1)
	seller := middleware.Identity{UserID: 20, Role: enums.RoleSeller, SellerID: &sellerID}

	req := withOrderParam(requestAs(http.MethodPost, "/api/v1/seller/orders/11/advance", `{"status":"preparing"}`, seller), "11")
	resp := httptest.NewRecorder()
	Advance(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if got := errorCode(t, resp); got != string(pkgerrors.CodeIllegalTransition) {
		t.Fatalf("unexpected code %s", got)
	}
	if svc.advancedTo != enums.OrderStatusPreparing || svc.actor.SellerID == nil || *svc.actor.SellerID != 1 {
		t.Fatalf("unexpected service call to=%s actor=%+v", svc.advancedTo, svc.actor)
	}
}

func TestCancelPassesActor(t *testing.T) {
	order := placedOrder()
	order.Status = enums.OrderStatusCancelled
	svc := &stubOrderService{order: order}

	req := withOrderParam(requestAs(http.MethodPost, "/api/v1/orders/11/cancel", "", buyer), "11")
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.actor.UserID != 7 || svc.actor.Role != enums.RoleBuyer {
		t.Fatalf("unexpected actor %+v", svc.actor)
	}
}

func TestGetMissingIdentity(t *testing.T) {
	req := withOrderParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/11", nil), "11")
	resp := httptest.NewRecorder()
	Get(&stubOrderService{order: placedOrder()}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAssignCourier(t *testing.T) {
	svc := &stubOrderService{order: placedOrder()}
	admin := middleware.Identity{UserID: 1, Role: enums.RoleAdmin}

	req := withOrderParam(requestAs(http.MethodPost, "/api/v1/admin/orders/11/assign", `{"courier_id":30}`, admin), "11")
	resp := httptest.NewRecorder()
	AssignCourier(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.courierID != 30 || svc.actor.Role != enums.RoleAdmin {
		t.Fatalf("unexpected assignment courier=%d actor=%+v", svc.courierID, svc.actor)
	}
}
