package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// IdentityLocalsKey is the fiber Locals key holding the resolved Identity
const IdentityLocalsKey = "identity"

// WithIdentityContext sets the Identity in the given context
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity in the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok && raw != nil
}

// GetFiberClaims extracts the AuthClaims stored by the jwt middleware
func GetFiberClaims(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user"
	}
	claims, ok := c.Locals(key).(AuthClaims)
	return claims, ok && claims != nil
}

// SetIdentity attaches identity to both the fiber locals and the user context.
func SetIdentity(c *fiber.Ctx, identity Identity) {
	c.Locals(IdentityLocalsKey, identity)
	c.SetUserContext(WithIdentityContext(c.UserContext(), identity))
}

// GetIdentity reads the identity resolved by ProtectedRoute.
func GetIdentity(c *fiber.Ctx) (Identity, bool) {
	if identity, ok := c.Locals(IdentityLocalsKey).(Identity); ok && identity != nil {
		return identity, true
	}
	return IdentityFromContext(c.UserContext())
}
