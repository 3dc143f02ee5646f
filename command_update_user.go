package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// UpdateUserMessage lists the fields a user record accepts on update. Nil
// fields are left untouched, anything else in the payload is ignored.
type UpdateUserMessage struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phoneNumber,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// Validate aggregates every field violation
func (m UpdateUserMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.FirstName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&m.LastName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&m.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&m.Phone, validation.By(validPhone)),
		validation.Field(&m.Password, validation.NilOrNotEmpty, validation.Length(PasswordMinLength, PasswordMaxLength)),
	)
}

// UpdateUser applies the whitelisted fields of msg to the user identified by
// uid. A password equal to the current one is not rehashed.
func (a *Accounts) UpdateUser(ctx context.Context, uid string, msg UpdateUserMessage) (*User, error) {
	if err := msg.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	ctx, cancel, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var user *User
	var columns []string

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = a.repo.Users().GetByUIDTx(ctx, tx, uid); err != nil {
			return lookupError(err, ErrUserNotFound)
		}

		if msg.FirstName != nil && *msg.FirstName != user.FirstName {
			user.FirstName = *msg.FirstName
			columns = append(columns, "first_name")
		}

		if msg.LastName != nil && *msg.LastName != user.LastName {
			user.LastName = *msg.LastName
			columns = append(columns, "last_name")
		}

		if msg.Email != nil {
			if email := NormalizeEmail(*msg.Email); email != user.Email {
				if other, err := a.repo.Users().GetByEmailTx(ctx, tx, email); err == nil && other.ID != user.ID {
					return ErrDuplicateEmail
				} else if err != nil && !IsRecordNotFound(err) {
					return ServerError(err, "failed to check email")
				}
				user.Email = email
				columns = append(columns, "email")
			}
		}

		if msg.Phone != nil {
			phone, _ := NormalizePhone(*msg.Phone)
			if phone != user.Phone {
				user.Phone = phone
				columns = append(columns, "phone_number")
			}
		}

		if msg.Password != nil {
			err := a.hasher.ComparePasswordAndHash(*msg.Password, user.PasswordHash)
			switch {
			case err == nil:
			case IsKind(err, KindInvalidCredentials):
				hash, err := a.hasher.HashPassword(*msg.Password)
				if err != nil {
					return err
				}
				user.PasswordHash = hash
				columns = append(columns, "password_hash")
			default:
				return err
			}
		}

		if len(columns) == 0 {
			return nil
		}

		if _, err := a.repo.Users().UpdateColumnsTx(ctx, tx, user, columns...); err != nil {
			return lookupError(err, ErrUserNotFound)
		}
		return nil
	})

	if err != nil {
		a.logger.Warn("update user failed", "user", uid, "error", err)
		return nil, err
	}

	if len(columns) > 0 {
		a.emit(ctx, ActivityEventUserUpdated, actorFromContext(ctx), user.UID, map[string]any{
			"columns": columns,
		})
	}

	return user, nil
}
