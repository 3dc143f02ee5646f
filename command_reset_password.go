package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/uptrace/bun"
)

// ResetPasswordMessage carries the reset token and the new password
type ResetPasswordMessage struct {
	Token    string `json:"-"`
	Password string `json:"password"`
}

// Validate aggregates every field violation. The token is checked against
// storage instead.
func (m ResetPasswordMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Password, validation.Required, validation.Length(PasswordMinLength, PasswordMaxLength)),
	)
}

// ResetPassword replaces the password of the account holding the reset token.
// Submitting the current password keeps the stored hash and only clears the
// reset fields.
func (a *Accounts) ResetPassword(ctx context.Context, msg ResetPasswordMessage) (*User, error) {
	if err := msg.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var user *User
	var rehashed bool
	now := a.now().UTC()

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = a.repo.Users().GetByResetTokenTx(ctx, tx, msg.Token); err != nil {
			return lookupError(err, ErrTokenNotFound)
		}

		if tokenExpired(user.ResetPasswordExpiresAt, now) {
			return ErrTokenExpired
		}

		columns := []string{"reset_password_token", "reset_password_expires_at"}

		if err := a.hasher.ComparePasswordAndHash(msg.Password, user.PasswordHash); err != nil {
			if !IsKind(err, KindInvalidCredentials) {
				return err
			}
			hash, err := a.hasher.HashPassword(msg.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
			columns = append(columns, "password_hash")
			rehashed = true
		}

		user.ResetPasswordToken = nil
		user.ResetPasswordExpiresAt = nil

		if _, err := a.repo.Users().UpdateColumnsTx(ctx, tx, user, columns...); err != nil {
			return lookupError(err, ErrTokenNotFound)
		}
		return nil
	})

	if err != nil {
		a.logger.Warn("reset password failed", "error", err)
		return nil, err
	}

	a.emit(ctx, ActivityEventPasswordResetSuccess, userActor(user), user.UID, map[string]any{
		"rehashed": rehashed,
	})

	return user, nil
}
