package accounts_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/persistence"
)

const testPassword = "password123"

type testConfig struct {
	verifyToken bool
	enforceRBAC bool
	sendEmails  bool
	sessionTTL  time.Duration
	confirmTTL  time.Duration
	resetTTL    time.Duration
}

func defaultTestConfig() testConfig {
	return testConfig{
		verifyToken: true,
		enforceRBAC: true,
		sendEmails:  true,
		sessionTTL:  time.Hour,
	}
}

func (c testConfig) GetSigningKey() string { return "test-signing-key" }
func (c testConfig) GetSigningMethod() string { return "HS256" }
func (c testConfig) GetTokenExpiration() time.Duration { return c.sessionTTL }
func (c testConfig) GetIssuer() string { return "accounts-test" }
func (c testConfig) GetContextKey() string { return "user" }
func (c testConfig) GetTokenLookup() string { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string { return "Bearer" }
func (c testConfig) GetConfirmTokenTTL() time.Duration { return c.confirmTTL }
func (c testConfig) GetResetTokenTTL() time.Duration { return c.resetTTL }
func (c testConfig) GetVerifyToken() bool { return c.verifyToken }
func (c testConfig) GetEnforceRBAC() bool { return c.enforceRBAC }
func (c testConfig) GetSendEmails() bool { return c.sendEmails }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	kind  string
	email string
	token string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *captureMailer) SendConfirmAccount(_ context.Context, user *accounts.User) error {
	m.record("confirm", user.Email, user.ConfirmToken)
	return nil
}

func (m *captureMailer) SendResetPassword(_ context.Context, user *accounts.User) error {
	m.record("reset", user.Email, user.ResetPasswordToken)
	return nil
}

func (m *captureMailer) record(kind, email string, token *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := sentMail{kind: kind, email: email}
	if token != nil {
		s.token = *token
	}
	m.sent = append(m.sent, s)
}

func (m *captureMailer) last(t *testing.T, kind string) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s mail was sent", kind)
	return sentMail{}
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, e accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) ofType(eventType accounts.ActivityEventType) []accounts.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []accounts.ActivityEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	cfg    testConfig
	db     *bun.DB
	svc    *accounts.Accounts
	mailer *captureMailer
	sink   *recordingSink
	clock  *testClock
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := persistence.OpenAndMigrate(context.Background(), persistence.Options{
		Driver: accounts.DialectSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixture(t *testing.T, cfg testConfig) *fixture {
	t.Helper()

	f := &fixture{
		cfg:    cfg,
		db:     newTestDB(t),
		mailer: &captureMailer{},
		sink:   &recordingSink{},
		clock:  newTestClock(),
	}

	f.svc = accounts.NewAccounts(accounts.NewRepositoryManager(f.db), cfg).
		WithHasher(accounts.NewBcryptHasher(bcrypt.MinCost)).
		WithMailer(f.mailer).
		WithActivitySink(f.sink).
		WithClock(f.clock.Now)

	return f
}

func (f *fixture) signup(t *testing.T, email string) *accounts.User {
	t.Helper()
	user, err := f.svc.Signup(context.Background(), accounts.SignupMessage{
		Email:     email,
		FirstName: "Mike",
		LastName:  "Smith",
		Password:  testPassword,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) signupConfirmed(t *testing.T, email string) *accounts.User {
	t.Helper()
	user := f.signup(t, email)
	confirmed, err := f.svc.ConfirmAccount(context.Background(), *user.ConfirmToken)
	require.NoError(t, err)
	return confirmed
}

func (f *fixture) admin(t *testing.T, email string) *accounts.User {
	t.Helper()
	_, err := f.svc.EnsureAdmin(context.Background(), accounts.BootstrapAdminMessage{
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return f.reload(t, "", email)
}

// reload reads the row back by uid or, when uid is empty, by email.
func (f *fixture) reload(t *testing.T, uid, email string) *accounts.User {
	t.Helper()
	ctx := context.Background()
	users := f.svc.Repository().Users()

	if uid != "" {
		user, err := users.GetByUID(ctx, uid)
		require.NoError(t, err)
		return user
	}

	user, err := users.GetByEmailTx(ctx, f.db, email)
	require.NoError(t, err)
	return user
}

func assertKind(t *testing.T, err error, kind accounts.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, accounts.IsKind(err, kind), "expected %s, got %v", kind, err)
}
