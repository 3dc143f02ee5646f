package accounts

import (
	"context"

	"github.com/uptrace/bun"
)

// DestroyUser soft deletes the user identified by uid. The row is retained
// but hidden from every later lookup.
func (a *Accounts) DestroyUser(ctx context.Context, uid string) error {
	ctx, cancel, err := guard(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := a.repo.Users().GetByUIDTx(ctx, tx, uid)
		if err != nil {
			return lookupError(err, ErrUserNotFound)
		}

		if err := a.stateMachine.Transition(ctx, actorFromContext(ctx), user, AccountDeleted); err != nil {
			return err
		}

		if err := a.repo.Users().MarkDeletedTx(ctx, tx, user); err != nil {
			return lookupError(err, ErrUserNotFound)
		}
		return nil
	})

	if err != nil {
		a.logger.Warn("destroy user failed", "user", uid, "error", err)
		return err
	}

	return nil
}
