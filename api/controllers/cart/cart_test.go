package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	cartdto "github.com/angelmondragon/foodhall-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/foodhall-backend/api/middleware"
	cartsvc "github.com/angelmondragon/foodhall-backend/internal/cart"
	"github.com/angelmondragon/foodhall-backend/internal/pricing"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
)

type stubCartService struct {
	view       *cartsvc.View
	err        error
	lastItemID int64
	lastQty    int
	lastCoupon string
	cleared    bool
}

func (s *stubCartService) AddItem(ctx context.Context, userID, menuItemID int64, quantity int) (*cartsvc.View, error) {
	s.lastItemID, s.lastQty = menuItemID, quantity
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, menuItemID int64) (*cartsvc.View, error) {
	s.lastItemID = menuItemID
	return s.view, s.err
}

func (s *stubCartService) ChangeQuantity(ctx context.Context, userID, menuItemID int64, delta int) (*cartsvc.View, error) {
	s.lastItemID, s.lastQty = menuItemID, delta
	return s.view, s.err
}

func (s *stubCartService) GetCart(ctx context.Context, userID int64) (*cartsvc.View, error) {
	return s.view, s.err
}

func (s *stubCartService) Quote(ctx context.Context, userID int64, couponCode string) (*cartsvc.View, error) {
	s.lastCoupon = couponCode
	return s.view, s.err
}

func (s *stubCartService) Clear(ctx context.Context, userID int64) error {
	s.cleared = true
	return s.err
}

func (s *stubCartService) Snapshot(ctx context.Context, userID int64) ([]pricing.Line, error) {
	return nil, s.err
}

func (s *stubCartService) ClearTx(ctx context.Context, tx *gorm.DB, userID int64) error {
	return s.err
}

func kebabView() *cartsvc.View {
	price := decimal.RequireFromString("110.00")
	return &cartsvc.View{
		UserID: 7,
		Lines: []cartsvc.LineView{{
			MenuItemID: 1,
			SellerID:   1,
			Name:       "Adana Kebab",
			UnitPrice:  price,
			Quantity:   2,
			LineTotal:  price.Mul(decimal.NewFromInt(2)),
			Available:  true,
		}},
		Quote: pricing.Quote{
			Subtotal:       decimal.RequireFromString("220.00"),
			DeliveryFee:    decimal.RequireFromString("29.99"),
			DiscountAmount: decimal.Zero,
			Total:          decimal.RequireFromString("249.99"),
		},
	}
}

func buyerRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: 7, Role: enums.RoleBuyer}))
}

func withItemParam(req *http.Request, itemID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("itemId", itemID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeView(t *testing.T, resp *httptest.ResponseRecorder) cartdto.CartView {
	t.Helper()
	var envelope struct {
		Data cartdto.CartView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCartFetchSuccess(t *testing.T) {
	handler := CartFetch(&stubCartService{view: kebabView()}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	view := decodeView(t, resp)
	if view.Total != "249.99" || view.Subtotal != "220.00" || view.DeliveryFee != "29.99" {
		t.Fatalf("unexpected totals %+v", view)
	}
	if len(view.Lines) != 1 || view.Lines[0].LineTotal != "220.00" {
		t.Fatalf("unexpected lines %+v", view.Lines)
	}
}

func TestCartFetchMissingIdentity(t *testing.T) {
	handler := CartFetch(&stubCartService{view: kebabView()}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItem(t *testing.T) {
	svc := &stubCartService{view: kebabView()}
	handler := CartAddItem(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodPost, "/api/v1/cart/items", `{"menu_item_id":1,"quantity":2}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastItemID != 1 || svc.lastQty != 2 {
		t.Fatalf("unexpected service call item=%d qty=%d", svc.lastItemID, svc.lastQty)
	}
}

func TestCartAddItemRejectsBadQuantity(t *testing.T) {
	svc := &stubCartService{view: kebabView()}
	handler := CartAddItem(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodPost, "/api/v1/cart/items", `{"menu_item_id":1,"quantity":0}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.lastItemID != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCartAddItemUnknownItem(t *testing.T) {
	handler := CartAddItem(&stubCartService{err: pkgerrors.New(pkgerrors.CodeItemNotFound, "menu item 99 not found")}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodPost, "/api/v1/cart/items", `{"menu_item_id":99,"quantity":1}`))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeItemNotFound) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestCartChangeQuantity(t *testing.T) {
	svc := &stubCartService{view: kebabView()}
	handler := CartChangeQuantity(svc, nil)

	req := withItemParam(buyerRequest(http.MethodPatch, "/api/v1/cart/items/1", `{"delta":-1}`), "1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastItemID != 1 || svc.lastQty != -1 {
		t.Fatalf("unexpected service call item=%d delta=%d", svc.lastItemID, svc.lastQty)
	}
}

func TestCartRemoveItemBadID(t *testing.T) {
	handler := CartRemoveItem(&stubCartService{view: kebabView()}, nil)

	req := withItemParam(buyerRequest(http.MethodDelete, "/api/v1/cart/items/abc", ""), "abc")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	handler := CartClear(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodDelete, "/api/v1/cart", ""))

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if !svc.cleared {
		t.Fatal("expected cart to be cleared")
	}
}

func TestCartQuoteWithCoupon(t *testing.T) {
	view := kebabView()
	code := "SAVE20"
	view.CouponCode = &code
	view.Quote.DiscountAmount = decimal.RequireFromString("30.00")
	view.Quote.Total = decimal.RequireFromString("219.99")
	svc := &stubCartService{view: view}
	handler := CartQuote(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodPost, "/api/v1/cart/quote", `{"coupon_code":"save20"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastCoupon != "save20" {
		t.Fatalf("unexpected coupon passed %q", svc.lastCoupon)
	}
	got := decodeView(t, resp)
	if got.Total != "219.99" || got.Discount != "30.00" {
		t.Fatalf("unexpected quote %+v", got)
	}
	if got.CouponCode == nil || *got.CouponCode != "SAVE20" {
		t.Fatalf("expected coupon code in response")
	}
}

func TestCartQuoteMinimumOrderNotMet(t *testing.T) {
	handler := CartQuote(&stubCartService{err: pkgerrors.New(pkgerrors.CodeMinimumOrderNotMet, "order subtotal below coupon minimum")}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, buyerRequest(http.MethodPost, "/api/v1/cart/quote", `{"coupon_code":"BIG300"}`))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
