package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role name
type UserRole = string

const (
	// RoleAdmin can manage any account
	RoleAdmin UserRole = "admin"
	// RoleUser can manage its own account
	RoleUser UserRole = "user"
)

// Role is the authorization grouping referenced by users
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rl"`
	ID            int64      `bun:"id,pk,autoincrement" json:"-"`
	Name          UserRole   `bun:"name,notnull,unique" json:"name"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID     uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"-"`
	UID    string    `bun:"uid,notnull,unique" json:"uid"`
	RoleID int64     `bun:"role_id,notnull" json:"-"`
	Role   *Role     `bun:"rel:belongs-to,join:role_id=id" json:"-"`

	FirstName    string `bun:"first_name,notnull" json:"firstName"`
	LastName     string `bun:"last_name,notnull" json:"lastName"`
	Email        string `bun:"email,notnull" json:"email"`
	Phone        string `bun:"phone_number,nullzero" json:"phoneNumber,omitempty"`
	PasswordHash string `bun:"password_hash,notnull" json:"-"`

	LastVisit *time.Time `bun:"last_visit,nullzero" json:"lastVisit,omitempty"`
	IP        string     `bun:"ip,nullzero" json:"ip,omitempty"`

	Confirmed             bool       `bun:"confirmed,notnull" json:"confirmed"`
	ConfirmToken          *string    `bun:"confirm_token" json:"-"`
	ConfirmTokenExpiresAt *time.Time `bun:"confirm_token_expires_at" json:"-"`

	ResetPasswordToken     *string    `bun:"reset_password_token" json:"-"`
	ResetPasswordExpiresAt *time.Time `bun:"reset_password_expires_at" json:"-"`

	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// RoleName returns the name of the loaded role relation
func (u *User) RoleName() UserRole {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// State derives the lifecycle state from the persisted columns
func (u *User) State() AccountState {
	switch {
	case u == nil:
		return ""
	case u.DeletedAt != nil:
		return AccountDeleted
	case u.Confirmed:
		return AccountConfirmed
	default:
		return AccountUnconfirmed
	}
}

// OAuthStrategy links an account to an external provider. Mapped for schema
// completeness, no handler reads or writes it.
type OAuthStrategy struct {
	bun.BaseModel `bun:"table:oauth_strategies,alias:oas"`
	ID            int64      `bun:"id,pk,autoincrement"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	Provider      string     `bun:"provider,notnull"`
	ProviderID    string     `bun:"provider_id,notnull"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// SecurityQuestion is a catalog entry for account recovery questions
type SecurityQuestion struct {
	bun.BaseModel `bun:"table:security_questions,alias:sq"`
	ID            int64      `bun:"id,pk,autoincrement"`
	Question      string     `bun:"question,notnull"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// UserSecurityQuestion stores a user's hashed answer to a security question
type UserSecurityQuestion struct {
	bun.BaseModel      `bun:"table:users_security_questions,alias:usq"`
	UserID             uuid.UUID         `bun:"user_id,pk,type:uuid"`
	User               *User             `bun:"rel:belongs-to,join:user_id=id"`
	SecurityQuestionID int64             `bun:"security_question_id,pk"`
	SecurityQuestion   *SecurityQuestion `bun:"rel:belongs-to,join:security_question_id=id"`
	AnswerHash         string            `bun:"answer_hash,notnull"`
	CreatedAt          *time.Time        `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt          *time.Time        `bun:"updated_at,nullzero,default:current_timestamp"`
}

// Models lists every table model so callers can register them with bun.
func Models() []any {
	return []any{
		(*Role)(nil),
		(*User)(nil),
		(*OAuthStrategy)(nil),
		(*SecurityQuestion)(nil),
		(*UserSecurityQuestion)(nil),
	}
}
