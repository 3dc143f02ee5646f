package accounts

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ConfirmAccount moves the account holding token from unconfirmed to
// confirmed and clears the token. Expired tokens leave the row untouched.
func (a *Accounts) ConfirmAccount(ctx context.Context, token string) (*User, error) {
	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var user *User
	now := a.now().UTC()

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = a.repo.Users().GetByConfirmTokenTx(ctx, tx, token); err != nil {
			return lookupError(err, ErrTokenNotFound)
		}

		if tokenExpired(user.ConfirmTokenExpiresAt, now) {
			return ErrTokenExpired
		}

		if err := a.stateMachine.Transition(ctx, userActor(user), user, AccountConfirmed); err != nil {
			return err
		}

		user.Confirmed = true
		user.ConfirmToken = nil
		user.ConfirmTokenExpiresAt = nil

		if _, err := a.repo.Users().UpdateColumnsTx(ctx, tx, user, "confirmed", "confirm_token", "confirm_token_expires_at"); err != nil {
			return lookupError(err, ErrTokenNotFound)
		}
		return nil
	})

	if err != nil {
		a.logger.Warn("confirm account failed", "error", err)
		return nil, err
	}

	return user, nil
}

// tokenExpired treats a missing expiry as expired
func tokenExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return now.After(*expiresAt)
}
