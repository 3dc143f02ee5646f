package accounts_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

type apiResponse struct {
	Status string                `json:"status"`
	Data   json.RawMessage       `json:"data"`
	Errors []accounts.ErrorEntry `json:"errors"`
}

func (r apiResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func (r apiResponse) code() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Code
}

func quietLogger() accounts.Logger {
	return accounts.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestApp(f *fixture) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: accounts.FiberErrorHandler(quietLogger(), false),
	})

	f.svc.WithLogger(quietLogger())
	accounts.RegisterHealthRoute(app, f.svc.Repository())
	accounts.RegisterRoutes(app, f.svc, accounts.NewRouteAuthenticator(f.svc, f.cfg))
	return app
}

func call(t *testing.T, app *fiber.App, method, target string, body any, token string) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, res := call(t, app, http.MethodPost, "/api/auth/login", fiber.Map{"email": email, "password": testPassword}, "")
	require.Equal(t, http.StatusOK, status, res.Errors)

	var data struct {
		Token string `json:"token"`
	}
	res.decode(t, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

type userPayload struct {
	User map[string]any `json:"user"`
}

func TestHTTP_AccountLifecycle(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)

	status, res := call(t, app, http.MethodPost, "/api/auth/signup", fiber.Map{
		"email":     "mike@x.com",
		"firstName": "Mike",
		"lastName":  "Smith",
		"password":  testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, accounts.StatusSuccess, res.Status)

	var created userPayload
	res.decode(t, &created)
	uid, _ := created.User["uid"].(string)
	assert.Len(t, uid, 22)
	assert.Len(t, created.User, 1)

	status, res = call(t, app, http.MethodPost, "/api/auth/login", fiber.Map{"email": "mike@x.com", "password": testPassword}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "EMAIL_NOT_CONFIRMED", res.code())

	confirmToken := f.mailer.last(t, "confirm").token
	status, res = call(t, app, http.MethodPost, "/api/auth/confirm-account?confirmToken="+confirmToken, nil, "")
	require.Equal(t, http.StatusOK, status)
	var confirmed userPayload
	res.decode(t, &confirmed)
	assert.Equal(t, uid, confirmed.User["uid"])

	status, res = call(t, app, http.MethodPost, "/api/auth/confirm-account?confirmToken="+confirmToken, nil, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "TOKEN_NOT_FOUND", res.code())
	assert.Equal(t, accounts.StatusFail, res.Status)

	token := login(t, app, "mike@x.com")

	status, res = call(t, app, http.MethodGet, "/api/users/"+uid, nil, token)
	require.Equal(t, http.StatusOK, status)
	var shown userPayload
	res.decode(t, &shown)
	assert.Equal(t, "mike@x.com", shown.User["email"])
	assert.Equal(t, true, shown.User["confirmed"])
	assert.NotContains(t, shown.User, "passwordHash")
	assert.NotContains(t, shown.User, "confirmToken")

	status, res = call(t, app, http.MethodPut, "/api/users/"+uid, fiber.Map{"firstName": "Michael"}, token)
	require.Equal(t, http.StatusOK, status)
	var updated userPayload
	res.decode(t, &updated)
	assert.Equal(t, "Michael", updated.User["firstName"])

	status, res = call(t, app, http.MethodDelete, "/api/users/"+uid, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", string(res.Data))

	status, res = call(t, app, http.MethodGet, "/api/users/"+uid, nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", res.code())
}

func TestHTTP_UserCannotTouchOthers(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)

	f.signupConfirmed(t, "mike@x.com")
	other := f.signupConfirmed(t, "jane@x.com")
	token := login(t, app, "mike@x.com")

	tests := []struct {
		method string
		target string
		body   any
	}{
		{http.MethodGet, "/api/users", nil},
		{http.MethodGet, "/api/users/" + other.UID, nil},
		{http.MethodPut, "/api/users/" + other.UID, fiber.Map{"firstName": "Hacked"}},
		{http.MethodDelete, "/api/users/" + other.UID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			status, res := call(t, app, tt.method, tt.target, tt.body, token)
			assert.Equal(t, http.StatusForbidden, status)
			assert.Equal(t, "UNAUTHORIZED", res.code())
		})
	}

	assert.Equal(t, "Mike", f.reload(t, other.UID, "").FirstName)
}

func TestHTTP_AdminManagesAnyUser(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)

	f.admin(t, "root@x.com")
	member := f.signupConfirmed(t, "mike@x.com")
	token := login(t, app, "root@x.com")

	status, res := call(t, app, http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Users []map[string]any `json:"users"`
	}
	res.decode(t, &list)
	assert.Len(t, list.Users, 2)

	status, _ = call(t, app, http.MethodPut, "/api/users/"+member.UID, fiber.Map{"lastName": "Jones"}, token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Jones", f.reload(t, member.UID, "").LastName)

	status, _ = call(t, app, http.MethodDelete, "/api/users/"+member.UID, nil, token)
	assert.Equal(t, http.StatusOK, status)

	status, res = call(t, app, http.MethodGet, "/api/users/"+member.UID, nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "USER_NOT_FOUND", res.code())
	assert.Equal(t, accounts.SourceParams, res.Errors[0].Source)
}

func TestHTTP_ValidationEntries(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)

	status, res := call(t, app, http.MethodPost, "/api/auth/signup", fiber.Map{}, "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, accounts.StatusFail, res.Status)

	var sources []string
	for _, e := range res.Errors {
		assert.Equal(t, "VALIDATION_FAILED", e.Code)
		assert.Equal(t, http.StatusBadRequest, e.StatusCode)
		assert.NotEmpty(t, e.Message)
		sources = append(sources, e.Source)
	}
	assert.ElementsMatch(t, []string{"email", "firstName", "lastName", "password"}, sources)

	status, res = call(t, app, http.MethodPost, "/api/auth/login", "{", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", res.code())
	assert.Equal(t, accounts.SourceBody, res.Errors[0].Source)
}

func TestHTTP_DuplicateSignup(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)
	f.signup(t, "mike@x.com")

	status, res := call(t, app, http.MethodPost, "/api/auth/signup", fiber.Map{
		"email":     "mike@x.com",
		"firstName": "Mike",
		"lastName":  "Smith",
		"password":  testPassword,
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE_EMAIL", res.code())
}

func TestHTTP_SessionTokenErrors(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)
	f.signupConfirmed(t, "mike@x.com")

	t.Run("missing token", func(t *testing.T) {
		status, res := call(t, app, http.MethodGet, "/api/users", nil, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_TOKEN", res.code())
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Token abc")
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		status, res := call(t, app, http.MethodGet, "/api/users", nil, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_TOKEN", res.code())
	})

	t.Run("expired session", func(t *testing.T) {
		token := login(t, app, "mike@x.com")
		f.clock.Advance(2 * time.Hour)

		status, res := call(t, app, http.MethodGet, "/api/users", nil, token)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "SESSION_EXPIRED", res.code())
	})
}

func TestHTTP_BypassFlags(t *testing.T) {
	t.Run("both stages off", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.verifyToken = false
		cfg.enforceRBAC = false
		f := newFixture(t, cfg)
		app := newTestApp(f)
		f.signup(t, "mike@x.com")

		status, _ := call(t, app, http.MethodGet, "/api/users", nil, "")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("authorization without identity", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.verifyToken = false
		f := newFixture(t, cfg)
		app := newTestApp(f)
		f.signup(t, "mike@x.com")

		status, res := call(t, app, http.MethodGet, "/api/users", nil, "")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, accounts.StatusError, res.Status)
		assert.Equal(t, "USER_NOT_FOUND", res.code())
		assert.Equal(t, accounts.SourceContext, res.Errors[0].Source)
	})

	t.Run("verification only", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.enforceRBAC = false
		f := newFixture(t, cfg)
		app := newTestApp(f)
		f.signupConfirmed(t, "mike@x.com")
		token := login(t, app, "mike@x.com")

		status, _ := call(t, app, http.MethodGet, "/api/users", nil, token)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestHTTP_PasswordReset(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)
	user := f.signupConfirmed(t, "mike@x.com")

	status, res := call(t, app, http.MethodPost, "/api/auth/forgot-password", fiber.Map{"email": "mike@x.com"}, "")
	require.Equal(t, http.StatusOK, status)
	var requested userPayload
	res.decode(t, &requested)
	assert.Equal(t, user.UID, requested.User["uid"])

	resetToken := f.mailer.last(t, "reset").token
	status, _ = call(t, app, http.MethodPost, "/api/auth/reset-password?resetPasswordToken="+resetToken, fiber.Map{"password": "brand-new-secret"}, "")
	require.Equal(t, http.StatusOK, status)

	status, res = call(t, app, http.MethodPost, "/api/auth/login", fiber.Map{"email": "mike@x.com", "password": "brand-new-secret"}, "")
	assert.Equal(t, http.StatusOK, status, res.Errors)

	status, res = call(t, app, http.MethodPost, "/api/auth/reset-password?resetPasswordToken="+resetToken, fiber.Map{"password": "another-secret"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "TOKEN_NOT_FOUND", res.code())

	status, res = call(t, app, http.MethodPost, "/api/auth/forgot-password", fiber.Map{"email": "nobody@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMAIL_NOT_FOUND", res.code())
}

func TestHTTP_HealthAndNotFound(t *testing.T) {
	f := newFixture(t, defaultTestConfig())
	app := newTestApp(f)

	status, res := call(t, app, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, status)
	var health map[string]string
	res.decode(t, &health)
	assert.Equal(t, "ok", health["database"])

	status, res = call(t, app, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", res.code())
	assert.Equal(t, accounts.StatusFail, res.Status)
}

func TestHTTP_EmptyList(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.verifyToken = false
	cfg.enforceRBAC = false
	f := newFixture(t, cfg)
	app := newTestApp(f)

	status, res := call(t, app, http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NO_USERS_FOUND", res.code())
}
