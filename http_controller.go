package accounts

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// Query params carrying one time tokens
const (
	ConfirmTokenParam       = "confirmToken"
	ResetPasswordTokenParam = "resetPasswordToken"
)

type AuthControllerRoutes struct {
	Signup         string
	ConfirmAccount string
	Login          string
	ForgotPassword string
	ResetPassword  string
}

// AuthController serves the public account lifecycle endpoints
type AuthController struct {
	Debug    bool
	Logger   Logger
	Accounts *Accounts
	Routes   *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthControllerDebug dumps request payloads through the logger
func WithAuthControllerDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

func WithAuthControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Logger = normalizeLogger(logger)
		return ac
	}
}

func NewAuthController(svc *Accounts, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   svc.logger,
		Accounts: svc,
		Routes: &AuthControllerRoutes{
			Signup:         "/signup",
			ConfirmAccount: "/confirm-account",
			Login:          "/login",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// userRef is the minimal projection returned by lifecycle endpoints
type userRef struct {
	UID string `json:"uid"`
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	payload := new(SignupMessage)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	user, err := a.Accounts.Signup(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusCreated, fiber.Map{
		"user": userRef{UID: user.UID},
	})
}

func (a *AuthController) ConfirmAccount(c *fiber.Ctx) error {
	user, err := a.Accounts.ConfirmAccount(c.UserContext(), c.Query(ConfirmTokenParam))
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"user": userRef{UID: user.UID},
	})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginMessage)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	res, err := a.Accounts.Login(c.UserContext(), *payload, c.IP())
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"token": res.Token,
	})
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordMessage)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	user, err := a.Accounts.ForgotPassword(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"user": userRef{UID: user.UID},
	})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordMessage)
	if err := a.bind(c, payload); err != nil {
		return err
	}
	payload.Token = c.Query(ResetPasswordTokenParam)

	user, err := a.Accounts.ResetPassword(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"user": userRef{UID: user.UID},
	})
}

func (a *AuthController) bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Debug("failed to parse request body", "path", c.Path(), "error", err)
		return WrapError(WithMessage(errValidationFailed, "request body could not be parsed"), err)
	}

	if a.Debug {
		a.Logger.Debug(fmt.Sprintf("%s payload", c.Path()), "payload", print.MaybePrettyJSON(redact(payload)))
	}
	return nil
}

// redact hides password fields from debug dumps
func redact(payload any) any {
	switch p := payload.(type) {
	case *SignupMessage:
		c := *p
		c.Password = "***"
		return c
	case *LoginMessage:
		c := *p
		c.Password = "***"
		return c
	case *ResetPasswordMessage:
		c := *p
		c.Password = "***"
		return c
	case *UpdateUserMessage:
		c := *p
		if c.Password != nil {
			masked := "***"
			c.Password = &masked
		}
		return c
	}
	return payload
}
