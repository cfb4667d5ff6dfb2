package middleware

import (
	"context"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

type contextKey string

const (
	ctxIdentity contextKey = "identity"
)

// Identity is the caller asserted by the bearer token.
type Identity struct {
	UserID   int64
	Role     enums.Role
	SellerID *int64
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

func UserIDFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

func RoleFromContext(ctx context.Context) enums.Role {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}
