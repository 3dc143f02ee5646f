package accounts_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

// MockIdentity implements accounts.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

func newIdentity(uid, role string) *MockIdentity {
	identity := &MockIdentity{}
	identity.On("ID").Return(uid)
	identity.On("Role").Return(role)
	identity.On("Email").Return(uid + "@x.com").Maybe()
	return identity
}

func TestNewTokenService(t *testing.T) {
	t.Run("creates token service with logger", func(t *testing.T) {
		service := accounts.NewTokenService([]byte("key"), time.Hour, "issuer", &MockLogger{})
		assert.NotNil(t, service)
	})

	t.Run("creates token service with nil logger", func(t *testing.T) {
		service := accounts.NewTokenService([]byte("key"), 0, "issuer", nil)
		assert.NotNil(t, service)
	})
}

func TestTokenService_GenerateAndValidate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service := accounts.NewTokenService([]byte("test-signing-key"), time.Hour, "test-issuer", nil).
		WithClock(func() time.Time { return now })

	identity := newIdentity("aBcDeFgHiJkLmNoPqRsTuV", accounts.RoleAdmin)

	token, err := service.Generate(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "aBcDeFgHiJkLmNoPqRsTuV", claims.UserID())
	assert.Equal(t, "aBcDeFgHiJkLmNoPqRsTuV", claims.Subject())
	assert.Equal(t, accounts.RoleAdmin, claims.Role())
	assert.True(t, claims.HasRole(accounts.RoleAdmin))
	assert.Equal(t, now, claims.IssuedAt().UTC())
	assert.Equal(t, now.Add(time.Hour), claims.Expires().UTC())

	identity.AssertExpectations(t)
}

func TestTokenService_GenerateWithoutIdentity(t *testing.T) {
	service := accounts.NewTokenService([]byte("key"), time.Hour, "", nil)

	_, err := service.Generate(nil)
	assertKind(t, err, accounts.KindServerError)

	_, err = service.Generate(newIdentity("", accounts.RoleUser))
	assertKind(t, err, accounts.KindServerError)
}

func TestTokenService_Validate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	service := accounts.NewTokenService([]byte("test-signing-key"), time.Hour, "test-issuer", nil).WithClock(clock)
	valid, err := service.Generate(newIdentity("uid-1", accounts.RoleUser))
	require.NoError(t, err)

	t.Run("expired token", func(t *testing.T) {
		later := accounts.NewTokenService([]byte("test-signing-key"), time.Hour, "test-issuer", nil).
			WithClock(func() time.Time { return now.Add(2 * time.Hour) })

		_, err := later.Validate(valid)
		assertKind(t, err, accounts.KindSessionExpired)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := accounts.NewTokenService([]byte("other-key"), time.Hour, "test-issuer", nil).WithClock(clock)

		_, err := other.Validate(valid)
		assertKind(t, err, accounts.KindInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := accounts.NewTokenService([]byte("test-signing-key"), time.Hour, "someone-else", nil).WithClock(clock)

		_, err := other.Validate(valid)
		assertKind(t, err, accounts.KindInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := &accounts.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Subject:   "uid-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			UID: "uid-1",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = service.Validate(signed)
		assertKind(t, err, accounts.KindInvalidToken)
	})

	t.Run("missing uid", func(t *testing.T) {
		signed, err := service.SignClaims(&accounts.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		require.NoError(t, err)

		_, err = service.Validate(signed)
		assertKind(t, err, accounts.KindInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, raw := range []string{"", "not.a.jwt", "abc"} {
			_, err := service.Validate(raw)
			assertKind(t, err, accounts.KindInvalidToken)
		}
	})
}

func TestTokenValidatorFunc(t *testing.T) {
	var nilFunc accounts.TokenValidatorFunc
	_, err := nilFunc.Validate("anything")
	assertKind(t, err, accounts.KindInvalidToken)

	called := false
	fn := accounts.TokenValidatorFunc(func(raw string) (accounts.AuthClaims, error) {
		called = true
		return &accounts.JWTClaims{UID: raw}, nil
	})

	claims, err := fn.Validate("uid-1")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "uid-1", claims.UserID())
}
