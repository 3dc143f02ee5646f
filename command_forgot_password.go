package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// ForgotPasswordMessage is the password reset request payload
type ForgotPasswordMessage struct {
	Email string `json:"email"`
}

// Validate aggregates every field violation
func (m ForgotPasswordMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
	)
}

// ForgotPassword stores a reset token on a confirmed account and triggers
// the reset mail.
func (a *Accounts) ForgotPassword(ctx context.Context, msg ForgotPasswordMessage) (*User, error) {
	if err := msg.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var user *User
	now := a.now().UTC()

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = a.repo.Users().GetByEmailTx(ctx, tx, msg.Email); err != nil {
			return lookupError(err, ErrEmailNotFound)
		}

		if !user.Confirmed {
			return ErrEmailNotConfirmed
		}

		token, err := IssueOpaqueToken(user.Email)
		if err != nil {
			return err
		}
		expires := now.Add(a.resetTTL())

		user.ResetPasswordToken = &token
		user.ResetPasswordExpiresAt = &expires

		if _, err := a.repo.Users().UpdateColumnsTx(ctx, tx, user, "reset_password_token", "reset_password_expires_at"); err != nil {
			return lookupError(err, ErrEmailNotFound)
		}
		return nil
	})

	if err != nil {
		a.logger.Warn("forgot password failed", "email", NormalizeEmail(msg.Email), "error", err)
		return nil, err
	}

	a.emit(ctx, ActivityEventPasswordResetRequest, userActor(user), user.UID, nil)
	a.notify(ctx, "reset_password", user, a.mailer.SendResetPassword)

	return user, nil
}
