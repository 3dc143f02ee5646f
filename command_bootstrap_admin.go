package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// BootstrapAdminMessage describes the initial administrator account
type BootstrapAdminMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate aggregates every field violation
func (m BootstrapAdminMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Password, validation.Required, validation.Length(PasswordMinLength, PasswordMaxLength)),
	)
}

// EnsureAdmin creates a confirmed admin account for msg.Email unless an
// active account already owns that address. It reports whether a row was
// created.
func (a *Accounts) EnsureAdmin(ctx context.Context, msg BootstrapAdminMessage) (bool, error) {
	if err := msg.Validate(); err != nil {
		return false, ValidationError(err)
	}

	ctx, cancel, err := guard(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	if msg.FirstName == "" {
		msg.FirstName = "Admin"
	}
	if msg.LastName == "" {
		msg.LastName = "Admin"
	}

	hash, err := a.hasher.HashPassword(msg.Password)
	if err != nil {
		return false, err
	}

	created := false
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := a.repo.Users().GetByEmailTx(ctx, tx, msg.Email); err == nil {
			return nil
		} else if !IsRecordNotFound(err) {
			return ServerError(err, "failed to check email")
		}

		role, err := a.repo.Roles().GetByNameTx(ctx, tx, RoleAdmin)
		if err != nil {
			return ServerError(err, "admin role is missing")
		}

		now := a.now().UTC()
		user := &User{
			RoleID:       role.ID,
			Role:         role,
			FirstName:    msg.FirstName,
			LastName:     msg.LastName,
			Email:        msg.Email,
			PasswordHash: hash,
			Confirmed:    true,
			CreatedAt:    &now,
			UpdatedAt:    &now,
		}

		if _, err := a.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return lookupError(err, ErrServer)
		}

		created = true
		a.logger.Info("bootstrapped admin account", "user", user.UID)
		return nil
	})

	return created, err
}
