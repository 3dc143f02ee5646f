package accounts

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	assert.True(t, tokenExpired(nil, now))
	assert.False(t, tokenExpired(at(time.Minute), now))
	assert.False(t, tokenExpired(at(0), now))
	assert.True(t, tokenExpired(at(-time.Nanosecond), now))
}

func TestLookupError(t *testing.T) {
	assert.Nil(t, lookupError(nil, ErrUserNotFound))
	assert.True(t, IsKind(lookupError(sql.ErrNoRows, ErrUserNotFound), KindUserNotFound))
	assert.True(t, IsKind(lookupError(ErrDuplicateEmail, ErrUserNotFound), KindDuplicateEmail))
	assert.True(t, IsKind(lookupError(assert.AnError, ErrUserNotFound), KindServerError))
}

func TestRedactMasksPasswords(t *testing.T) {
	got := redact(&SignupMessage{Email: "mike@x.com", Password: "secret"}).(SignupMessage)
	assert.Equal(t, "***", got.Password)
	assert.Equal(t, "mike@x.com", got.Email)

	pwd := "secret"
	update := redact(&UpdateUserMessage{Password: &pwd}).(UpdateUserMessage)
	assert.Equal(t, "***", *update.Password)
	assert.Equal(t, "secret", pwd)
}
