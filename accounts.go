package accounts

import (
	"context"
	"time"
)

// commandTimeout bounds the database work of a single operation
const commandTimeout = 10 * time.Second

// Default one time token lifetimes
const (
	DefaultConfirmTokenTTL = 2 * time.Hour
	DefaultResetTokenTTL   = 2 * time.Hour
)

// Accounts runs the account lifecycle operations: signup, confirmation,
// login, password reset and user record management.
type Accounts struct {
	repo         RepositoryManager
	config       Config
	tokens       TokenService
	hasher       PasswordAuthenticator
	mailer       Mailer
	activitySink ActivitySink
	stateMachine AccountStateMachine
	logger       Logger
	now          func() time.Time
}

// NewAccounts returns a new Accounts service
func NewAccounts(repo RepositoryManager, cfg Config) *Accounts {
	a := &Accounts{
		repo:   repo,
		config: cfg,
		tokens: NewTokenService(
			[]byte(cfg.GetSigningKey()),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			defLogger(),
		),
		hasher:       NewBcryptHasher(passwordHashCost()),
		mailer:       noopMailer{},
		activitySink: noopActivitySink{},
		logger:       defLogger(),
		now:          time.Now,
	}
	a.rebuildStateMachine()
	return a
}

func (a *Accounts) WithLogger(logger Logger) *Accounts {
	a.logger = normalizeLogger(logger)
	if ts, ok := a.tokens.(*TokenServiceImpl); ok {
		ts.logger = a.logger
	}
	a.rebuildStateMachine()
	return a
}

// WithMailer sets the delivery collaborator for confirmation and reset mail.
func (a *Accounts) WithMailer(mailer Mailer) *Accounts {
	if mailer == nil {
		mailer = noopMailer{}
	}
	a.mailer = mailer
	return a
}

// WithActivitySink configures an ActivitySink for emitting account events.
func (a *Accounts) WithActivitySink(sink ActivitySink) *Accounts {
	a.activitySink = normalizeActivitySink(sink)
	a.rebuildStateMachine()
	return a
}

// WithClock overrides the time source used for token expiry checks.
func (a *Accounts) WithClock(now func() time.Time) *Accounts {
	if now != nil {
		a.now = now
		if ts, ok := a.tokens.(*TokenServiceImpl); ok {
			ts.WithClock(now)
		}
		a.rebuildStateMachine()
	}
	return a
}

// WithHasher replaces the password hasher
func (a *Accounts) WithHasher(hasher PasswordAuthenticator) *Accounts {
	if hasher != nil {
		a.hasher = hasher
	}
	return a
}

// WithTokenService replaces the session token issuer
func (a *Accounts) WithTokenService(ts TokenService) *Accounts {
	if ts != nil {
		a.tokens = ts
	}
	return a
}

// TokenService returns the TokenService used by this service
func (a *Accounts) TokenService() TokenService {
	return a.tokens
}

// Repository returns the underlying repository manager
func (a *Accounts) Repository() RepositoryManager {
	return a.repo
}

func (a *Accounts) rebuildStateMachine() {
	a.stateMachine = NewAccountStateMachine(
		WithStateMachineClock(a.now),
		WithStateMachineActivitySink(a.activitySink),
		WithStateMachineLogger(a.logger),
	)
}

func (a *Accounts) emit(ctx context.Context, eventType ActivityEventType, actor ActorRef, uid string, metadata map[string]any) {
	recordActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     uid,
		Metadata:   metadata,
		OccurredAt: a.now(),
	})
}

// guard returns ctx.Err when ctx is already done and a bounded child context
// otherwise.
func guard(ctx context.Context) (context.Context, context.CancelFunc, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ServerError(ctx.Err(), "context cancelled")
	default:
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	return ctx, cancel, nil
}

// lookupError maps a repository miss to kind, passing other errors through
// as server errors.
func lookupError(err error, notFound *Error) error {
	if err == nil {
		return nil
	}
	if IsRecordNotFound(err) {
		return notFound
	}
	if e := AsError(err); !IsKind(e, KindServerError) {
		return e
	}
	return ServerError(err, "database error")
}

func userActor(u *User) ActorRef {
	if u == nil {
		return ActorRef{Type: "anonymous"}
	}
	return ActorRef{ID: u.UID, Type: "user"}
}

func (a *Accounts) confirmTTL() time.Duration {
	if ttl := a.config.GetConfirmTokenTTL(); ttl > 0 {
		return ttl
	}
	return DefaultConfirmTokenTTL
}

func (a *Accounts) resetTTL() time.Duration {
	if ttl := a.config.GetResetTokenTTL(); ttl > 0 {
		return ttl
	}
	return DefaultResetTokenTTL
}

// notify hands the user to the mailer when sending is enabled. Delivery
// failures are logged and never fail the operation.
func (a *Accounts) notify(ctx context.Context, kind string, user *User, send func(context.Context, *User) error) {
	if !a.config.GetSendEmails() {
		a.logger.Debug("mail sending disabled, skipping", "kind", kind, "user", user.UID)
		return
	}
	if err := send(ctx, user); err != nil {
		a.logger.Error("failed to send account mail", "kind", kind, "user", user.UID, "error", err)
	}
}

func actorFromContext(ctx context.Context) ActorRef {
	if identity, ok := IdentityFromContext(ctx); ok {
		return ActorRef{ID: identity.ID(), Type: identity.Role()}
	}
	return ActorRef{Type: "system"}
}
