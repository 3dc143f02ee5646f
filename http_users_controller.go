package accounts

import (
	"github.com/gofiber/fiber/v2"
)

// UIDParam is the route param naming the target user
const UIDParam = "uid"

// UsersController serves CRUD on user records. Authorization happens in the
// route pipeline before any handler runs.
type UsersController struct {
	Logger   Logger
	Accounts *Accounts
	auth     *AuthController
}

func NewUsersController(svc *Accounts) *UsersController {
	return &UsersController{
		Logger:   svc.logger,
		Accounts: svc,
		auth:     NewAuthController(svc),
	}
}

func (u *UsersController) List(c *fiber.Ctx) error {
	records, err := u.Accounts.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"users": records})
}

func (u *UsersController) Show(c *fiber.Ctx) error {
	user, err := u.Accounts.ShowUser(c.UserContext(), c.Params(UIDParam))
	if err != nil {
		return err
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"user": user})
}

func (u *UsersController) Update(c *fiber.Ctx) error {
	payload := new(UpdateUserMessage)
	if err := u.auth.bind(c, payload); err != nil {
		return err
	}

	user, err := u.Accounts.UpdateUser(c.UserContext(), c.Params(UIDParam), *payload)
	if err != nil {
		return err
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"user": user})
}

func (u *UsersController) Destroy(c *fiber.Ctx) error {
	if err := u.Accounts.DestroyUser(c.UserContext(), c.Params(UIDParam)); err != nil {
		return err
	}
	return SendSuccess(c, fiber.StatusOK, nil)
}
