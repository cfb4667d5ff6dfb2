package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/foodhall-backend/pkg/auth"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer"}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForeignIssuer(t *testing.T) {
	other := config.JWTConfig{Secret: testJWT.Secret, Issuer: "someone-else"}
	token := mintTestToken(t, other, auth.AccessTokenPayload{UserID: 7, Role: enums.RoleBuyer})
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	sellerID := int64(3)
	token := mintTestToken(t, testJWT, auth.AccessTokenPayload{UserID: 42, Role: enums.RoleSeller, SellerID: &sellerID})

	var captured Identity
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != 42 {
		t.Fatalf("expected user 42 got %d", captured.UserID)
	}
	if captured.Role != enums.RoleSeller {
		t.Fatalf("expected role seller got %s", captured.Role)
	}
	if captured.SellerID == nil || *captured.SellerID != sellerID {
		t.Fatalf("expected seller id %d got %v", sellerID, captured.SellerID)
	}
}

func TestAuthRejectsSellerTokenWithoutSellerID(t *testing.T) {
	claims := auth.AccessTokenClaims{
		UserID: 42,
		Role:   enums.RoleSeller,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testJWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	handler := Auth(testJWT, nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleSeller, enums.RoleAdmin)(okHandler())

	cases := []struct {
		role enums.Role
		want int
	}{
		{enums.RoleSeller, http.StatusOK},
		{enums.RoleAdmin, http.StatusOK},
		{enums.RoleBuyer, http.StatusForbidden},
		{enums.RoleCourier, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: 1, Role: tc.role}))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("anonymous request should be forbidden, got %d", resp.Code)
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("expected propagated request id got %q", got)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "has space")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got == "has space" || got == "" {
		t.Fatalf("expected replaced request id, got %q", got)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, payload auth.AccessTokenPayload) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), time.Hour, payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
