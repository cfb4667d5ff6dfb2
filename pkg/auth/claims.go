package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// AccessTokenPayload captures the identity asserted by the identity provider.
type AccessTokenPayload struct {
	UserID   int64
	Role     enums.Role
	SellerID *int64
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID   int64      `json:"user_id"`
	Role     enums.Role `json:"role"`
	SellerID *int64     `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass, as part of jwt parsing.
// The same rules gate minting.
func (c AccessTokenClaims) Validate() error {
	return validateIdentity(c.UserID, c.Role, c.SellerID)
}

func validateIdentity(userID int64, role enums.Role, sellerID *int64) error {
	if userID <= 0 {
		return errors.New("user id must be positive")
	}
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}
	if role == enums.RoleSeller && (sellerID == nil || *sellerID <= 0) {
		return errors.New("seller tokens require a seller id")
	}
	return nil
}
