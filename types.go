package accounts

import (
	"context"
	"time"
)

// Logger is the logging surface used across the package. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated account
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Config holds auth and account lifecycle options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenExpiration() time.Duration
	GetIssuer() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetConfirmTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	// GetVerifyToken toggles session token verification on protected routes.
	GetVerifyToken() bool
	// GetEnforceRBAC toggles the authorization check on protected routes.
	GetEnforceRBAC() bool
	// GetSendEmails toggles confirmation and reset emails.
	GetSendEmails() bool
}

// PasswordAuthenticator hashes and verifies passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Mailer delivers the out of band messages triggered by account transitions.
type Mailer interface {
	SendConfirmAccount(ctx context.Context, user *User) error
	SendResetPassword(ctx context.Context, user *User) error
}

type noopMailer struct{}

func (noopMailer) SendConfirmAccount(context.Context, *User) error { return nil }

func (noopMailer) SendResetPassword(context.Context, *User) error { return nil }
