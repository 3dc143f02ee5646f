package accounts

import "context"

// ShowUser returns the active user identified by uid
func (a *Accounts) ShowUser(ctx context.Context, uid string) (*User, error) {
	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	user, err := a.repo.Users().GetByUID(ctx, uid)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound)
	}
	return user, nil
}

// ListUsers returns every active user, NoUsersFound when there are none.
func (a *Accounts) ListUsers(ctx context.Context) ([]*User, error) {
	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	records, err := a.repo.Users().ListActive(ctx)
	if err != nil {
		return nil, ServerError(err, "failed to list users")
	}

	if len(records) == 0 {
		return nil, ErrNoUsersFound
	}
	return records, nil
}
