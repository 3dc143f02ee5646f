package accounts

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// Users is the persistence surface for user records. Every lookup ignores
// soft deleted rows. Tx variants must be used inside RunInTx.
type Users interface {
	repository.Repository[*User]

	GetByUID(ctx context.Context, uid string) (*User, error)
	GetByUIDTx(ctx context.Context, tx bun.IDB, uid string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByConfirmTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	ListActive(ctx context.Context) ([]*User, error)
	ListActiveTx(ctx context.Context, tx bun.IDB) ([]*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	UpdateColumnsTx(ctx context.Context, tx bun.IDB, user *User, columns ...string) (*User, error)
	MarkDeletedTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, ip string, at time.Time) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns a bun backed Users repository
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUID(ctx context.Context, uid string) (*User, error) {
	return a.GetByUIDTx(ctx, a.db, uid)
}

func (a *users) GetByUIDTx(ctx context.Context, tx bun.IDB, uid string) (*User, error) {
	return a.getBy(ctx, tx, "uid", strings.TrimSpace(uid))
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, sql.ErrNoRows
	}
	return a.Repository.GetByIdentifierTx(ctx, tx, email, SelectWithRole())
}

func (a *users) GetByConfirmTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.getBy(ctx, tx, "confirm_token", token)
}

func (a *users) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.getBy(ctx, tx, "reset_password_token", token)
}

func (a *users) getBy(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	if value == "" {
		return nil, sql.ErrNoRows
	}
	return a.Repository.GetTx(ctx, tx, SelectUsersBy(column, value), SelectWithRole())
}

func (a *users) ListActive(ctx context.Context) ([]*User, error) {
	return a.ListActiveTx(ctx, a.db)
}

// ListActiveTx returns users in creation order. Keys are UUIDv7 so the
// primary key sorts by insertion.
func (a *users) ListActiveTx(ctx context.Context, tx bun.IDB) ([]*User, error) {
	records, _, err := a.Repository.ListTx(ctx, tx, SelectWithRole(), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.id ASC")
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*User{}
	}
	return records, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isEmailConflict(err) {
			return nil, WrapError(ErrDuplicateEmail, err)
		}
		return nil, err
	}
	return created, nil
}

// UpdateColumnsTx persists the given columns, updated_at is always included.
// Nil pointer columns are written as NULL.
func (a *users) UpdateColumnsTx(ctx context.Context, tx bun.IDB, user *User, columns ...string) (*User, error) {
	now := time.Now().UTC()
	user.UpdatedAt = &now

	q := tx.NewUpdate().Model(user).WherePK()
	if len(columns) > 0 {
		cols := append(append([]string{}, columns...), "updated_at")
		q = q.Column(cols...)
	} else {
		q = q.ExcludeColumn("id", "uid", "created_at", "deleted_at")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if isEmailConflict(err) {
			return nil, WrapError(ErrDuplicateEmail, err)
		}
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

// MarkDeletedTx soft deletes the row, deleted_at is set and the row stays.
func (a *users) MarkDeletedTx(ctx context.Context, tx bun.IDB, user *User) error {
	res, err := tx.NewDelete().Model(user).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, ip string, at time.Time) error {
	user.LastVisit = &at
	user.IP = ip
	_, err := a.UpdateColumnsTx(ctx, tx, user, "last_visit", "ip")
	return err
}

// SelectUsersBy matches a single column of the users table
func SelectUsersBy(column, value string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), value)
	}
}

// SelectWithRole loads the role relation
func SelectWithRole() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Role")
	}
}

func prepareUserDefaults(user *User) {
	if user == nil {
		return
	}
	if user.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		user.ID = id
	}
	if user.UID == "" {
		user.UID = NewUID()
	}
	user.Email = NormalizeEmail(user.Email)

	now := time.Now().UTC()
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	if user.UpdatedAt == nil {
		user.UpdatedAt = &now
	}
}

// NormalizeEmail lowercases and trims an address before storage or lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsRecordNotFound reports whether err means no row matched
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || goerrors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation detects unique index failures from sqlite and postgres.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isEmailConflict(err error) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return strings.Contains(pgErr.ConstraintName, "email")
	}
	return strings.Contains(err.Error(), "users.email")
}
