package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// RouteAuthenticator builds the per request pipeline: session token
// verification, identity resolution and authorization.
type RouteAuthenticator struct {
	cfg        Config
	users      Users
	tokens     TokenValidator
	authorizer *Authorizer
	Logger     Logger
}

// NewRouteAuthenticator returns a RouteAuthenticator resolving identities
// through svc's repository and validating tokens with svc's TokenService.
func NewRouteAuthenticator(svc *Accounts, cfg Config) *RouteAuthenticator {
	return &RouteAuthenticator{
		cfg:        cfg,
		users:      svc.Repository().Users(),
		tokens:     svc.TokenService(),
		authorizer: NewAuthorizer(nil),
		Logger:     svc.logger,
	}
}

// WithAuthorizer replaces the default grant table
func (a *RouteAuthenticator) WithAuthorizer(authorizer *Authorizer) *RouteAuthenticator {
	if authorizer != nil {
		a.authorizer = authorizer
	}
	return a
}

// WithTokenValidator replaces the session token validator
func (a *RouteAuthenticator) WithTokenValidator(v TokenValidator) *RouteAuthenticator {
	if v != nil {
		a.tokens = v
	}
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(logger)
	return a
}

// ProtectedRoute verifies the bearer token and attaches the identity of the
// current user row. It is a pass through when token verification is off.
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	if !a.cfg.GetVerifyToken() {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return jwtware.New(jwtware.Config{
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
			claims, err := a.tokens.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		ContextKey:  a.cfg.GetContextKey(),
		TokenLookup: a.cfg.GetTokenLookup(),
		AuthScheme:  a.cfg.GetAuthScheme(),
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, ac)
			}
			return ctx
		},
		ErrorHandler:   a.authErrHandler,
		SuccessHandler: a.resolveIdentity,
	})
}

// Authorize consults the grant table for the resolved identity. targetParam
// names the route param holding the target uid, empty for list style routes.
func (a *RouteAuthenticator) Authorize(resource Resource, action Action, targetParam string) fiber.Handler {
	if !a.cfg.GetEnforceRBAC() {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := GetIdentity(c)
		if !ok {
			a.Logger.Error("authorize called without identity", "path", c.Path())
			return ErrIdentityNotInContext
		}

		target := ""
		if targetParam != "" {
			target = c.Params(targetParam)
		}

		err := a.authorizer.Authorize(AuthorizationRequest{
			Role:        identity.Role(),
			Resource:    resource,
			Action:      action,
			RequesterID: identity.ID(),
			TargetID:    target,
		})
		if err != nil {
			a.Logger.Info("authorization denied",
				"user", identity.ID(),
				"role", identity.Role(),
				"action", string(action),
				"target", target,
			)
			return err
		}

		return c.Next()
	}
}

func (a *RouteAuthenticator) resolveIdentity(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.cfg.GetContextKey())
	if !ok {
		return ErrInvalidToken
	}

	user, err := a.users.GetByUID(c.UserContext(), claims.UserID())
	if err != nil {
		if IsRecordNotFound(err) {
			return WithMessage(ErrInvalidToken, "session user no longer exists")
		}
		return ServerError(err, "failed to resolve session user")
	}

	SetIdentity(c, NewIdentityFromUser(user))
	return c.Next()
}

func (a *RouteAuthenticator) authErrHandler(c *fiber.Ctx, err error) error {
	if goerrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return WrapError(WithMessage(ErrInvalidToken, "missing or malformed session token"), err)
	}

	e := AsError(err)
	if IsKind(e, KindServerError) {
		return WrapError(ErrInvalidToken, err)
	}
	return e
}
