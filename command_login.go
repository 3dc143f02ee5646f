package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// LoginMessage is the login payload
type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate aggregates every field violation
func (m LoginMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Password, validation.Required),
	)
}

// LoginResult holds the issued session token and the authenticated user
type LoginResult struct {
	Token string
	User  *User
}

// Login verifies credentials for a confirmed account, records the visit and
// issues a session token.
func (a *Accounts) Login(ctx context.Context, msg LoginMessage, ip string) (*LoginResult, error) {
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

		if err := a.hasher.ComparePasswordAndHash(msg.Password, user.PasswordHash); err != nil {
			return err
		}

		if err := a.repo.Users().TrackSuccessfulLoginTx(ctx, tx, user, ip, now); err != nil {
			return ServerError(err, "failed to record login")
		}
		return nil
	})

	if err != nil {
		a.logger.Warn("login failed", "email", NormalizeEmail(msg.Email), "error", err)
		meta := map[string]any{"email": NormalizeEmail(msg.Email), "ip": ip, "code": AsError(err).TextCode}
		a.emit(ctx, ActivityEventLoginFailure, userActor(user), uidOf(user), meta)
		return nil, err
	}

	token, err := a.tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		a.logger.Error("login failed to issue session token", "user", user.UID, "error", err)
		return nil, AsError(err)
	}

	a.emit(ctx, ActivityEventLoginSuccess, userActor(user), user.UID, map[string]any{"ip": ip})

	return &LoginResult{Token: token, User: user}, nil
}

func uidOf(u *User) string {
	if u == nil {
		return ""
	}
	return u.UID
}
