package accounts

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the auth and users endpoints under /api.
func RegisterRoutes(app fiber.Router, svc *Accounts, auth *RouteAuthenticator, opts ...AuthControllerOption) {
	controller := NewAuthController(svc, opts...)
	users := NewUsersController(svc)
	users.auth = controller

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post(controller.Routes.Signup, controller.Signup).Name("auth.signup")
	authGroup.Post(controller.Routes.ConfirmAccount, controller.ConfirmAccount).Name("auth.confirm-account")
	authGroup.Post(controller.Routes.Login, controller.Login).Name("auth.login")
	authGroup.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).Name("auth.forgot-password")
	authGroup.Post(controller.Routes.ResetPassword, controller.ResetPassword).Name("auth.reset-password")

	usersGroup := api.Group("/users", auth.ProtectedRoute())
	usersGroup.Get("/", auth.Authorize(ResourceUsers, ActionList, ""), users.List).Name("users.list")
	usersGroup.Get("/:"+UIDParam, auth.Authorize(ResourceUsers, ActionShow, UIDParam), users.Show).Name("users.show")
	usersGroup.Put("/:"+UIDParam, auth.Authorize(ResourceUsers, ActionUpdate, UIDParam), users.Update).Name("users.update")
	usersGroup.Delete("/:"+UIDParam, auth.Authorize(ResourceUsers, ActionDestroy, UIDParam), users.Destroy).Name("users.destroy")
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealthRoute mounts GET /health, which pings the database.
func RegisterHealthRoute(app fiber.Router, db Pinger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return ServerError(err, "database unavailable")
		}
		return SendSuccess(c, fiber.StatusOK, fiber.Map{"database": "ok"})
	}).Name("health")
}
