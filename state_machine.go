package accounts

import (
	"context"
	"fmt"
	"time"
)

// AccountState is the lifecycle state of a user record
type AccountState string

const (
	AccountUnconfirmed AccountState = "unconfirmed"
	AccountConfirmed   AccountState = "confirmed"
	// AccountDeleted is terminal
	AccountDeleted AccountState = "deleted"
)

// ErrInvalidTransition is returned when a requested state change is not allowed.
var ErrInvalidTransition = newError(KindServerError, SourceServer, "invalid account state transition")

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor ActorRef
	User  *User
	From  AccountState
	To    AccountState
}

// TransitionHook is executed after a transition was validated.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// AccountStateMachine decides which lifecycle transitions are allowed.
type AccountStateMachine interface {
	// Transition validates moving user to target and records the change.
	// Persistence is done by the caller inside its transaction.
	Transition(ctx context.Context, actor ActorRef, user *User, target AccountState) error
	CurrentState(user *User) AccountState
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionHook adds a hook executed for every allowed transition.
func WithTransitionHook(h TransitionHook) StateMachineOption {
	return func(sm *accountStateMachine) {
		if h != nil {
			sm.hooks = append(sm.hooks, h)
		}
	}
}

// NewAccountStateMachine returns the default implementation.
func NewAccountStateMachine(opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		transitions: map[AccountState]map[AccountState]struct{}{
			AccountUnconfirmed: {
				AccountConfirmed: {},
				AccountDeleted:   {},
			},
			AccountConfirmed: {
				AccountDeleted: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	transitions  map[AccountState]map[AccountState]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
	hooks        []TransitionHook
}

func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target AccountState) error {
	if user == nil {
		return WithMessage(ErrInvalidTransition, "user is nil")
	}

	from := user.State()
	if !sm.canTransition(from, target) {
		return WithMessage(ErrInvalidTransition, fmt.Sprintf("cannot move account from %q to %q", from, target))
	}

	tc := TransitionContext{
		Actor: actor,
		User:  user,
		From:  from,
		To:    target,
	}

	for _, hook := range sm.hooks {
		if err := hook(ctx, tc); err != nil {
			return err
		}
	}

	if actor == (ActorRef{}) {
		actor = ActorRef{Type: "system"}
	}

	recordActivity(ctx, sm.activitySink, sm.logger, ActivityEvent{
		EventType:  ActivityEventStateChanged,
		Actor:      actor,
		UserID:     user.UID,
		FromState:  from,
		ToState:    target,
		OccurredAt: sm.now(),
	})

	return nil
}

func (sm *accountStateMachine) CurrentState(user *User) AccountState {
	return user.State()
}

func (sm *accountStateMachine) canTransition(from, to AccountState) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}
