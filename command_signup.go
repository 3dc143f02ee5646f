package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// Password length bounds, bcrypt ignores input past 72 bytes
const (
	PasswordMinLength = 8
	PasswordMaxLength = 72
)

// SignupMessage is the signup payload
type SignupMessage struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Phone     string `json:"phoneNumber,omitempty"`
}

// Validate aggregates every field violation
func (m SignupMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&m.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Password, validation.Required, validation.Length(PasswordMinLength, PasswordMaxLength)),
		validation.Field(&m.Phone, validation.By(validPhone)),
	)
}

// Signup creates an unconfirmed account with a fresh confirmation token and
// triggers the confirmation mail.
func (a *Accounts) Signup(ctx context.Context, msg SignupMessage) (*User, error) {
	if err := msg.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	phone, _ := NormalizePhone(msg.Phone)
	email := NormalizeEmail(msg.Email)

	hash, err := a.hasher.HashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	token, err := IssueOpaqueToken(email)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	expires := now.Add(a.confirmTTL())

	user := &User{
		UID:                   NewUID(),
		FirstName:             msg.FirstName,
		LastName:              msg.LastName,
		Email:                 email,
		Phone:                 phone,
		PasswordHash:          hash,
		Confirmed:             false,
		ConfirmToken:          &token,
		ConfirmTokenExpiresAt: &expires,
		CreatedAt:             &now,
		UpdatedAt:             &now,
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := a.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrDuplicateEmail
		} else if !IsRecordNotFound(err) {
			return ServerError(err, "failed to check email")
		}

		role, err := a.repo.Roles().GetByNameTx(ctx, tx, RoleUser)
		if err != nil {
			return ServerError(err, "default role is missing")
		}
		user.RoleID = role.ID
		user.Role = role

		if _, err := a.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return lookupError(err, ErrServer)
		}
		return nil
	})

	if err != nil {
		a.logger.Error("signup failed", "email", email, "error", err)
		return nil, err
	}

	a.logger.Info("signup", "user", user.UID)
	a.emit(ctx, ActivityEventSignup, userActor(user), user.UID, map[string]any{
		"email": user.Email,
	})

	a.notify(ctx, "confirm_account", user, a.mailer.SendConfirmAccount)

	return user, nil
}
