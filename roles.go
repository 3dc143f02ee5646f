package accounts

import "fmt"

// Resource is a protected entity type
type Resource string

const (
	ResourceUsers Resource = "users"
)

// Verb is the CRUD operation a grant allows
type Verb string

const (
	VerbCreate Verb = "create"
	VerbRead   Verb = "read"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Scope qualifies a verb with record ownership
type Scope string

const (
	ScopeOwn Scope = "own"
	ScopeAny Scope = "any"
)

// Action is the route level operation being authorized
type Action string

const (
	ActionList    Action = "list"
	ActionCreate  Action = "create"
	ActionShow    Action = "show"
	ActionUpdate  Action = "update"
	ActionDestroy Action = "destroy"
)

// Verb maps the action to the underlying CRUD verb.
func (a Action) Verb() (Verb, bool) {
	switch a {
	case ActionList, ActionShow:
		return VerbRead, true
	case ActionCreate:
		return VerbCreate, true
	case ActionUpdate:
		return VerbUpdate, true
	case ActionDestroy:
		return VerbDelete, true
	}
	return "", false
}

// Grant is one row of the permission table
type Grant struct {
	Role     UserRole
	Resource Resource
	Verb     Verb
	Scope    Scope
}

func (g Grant) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", g.Role, g.Resource, g.Verb, g.Scope)
}

// Grants is an immutable permission table
type Grants map[Grant]struct{}

// NewGrants builds a table from the given rows
func NewGrants(rows ...Grant) Grants {
	g := make(Grants, len(rows))
	for _, row := range rows {
		g[row] = struct{}{}
	}
	return g
}

// Has reports whether the exact tuple is granted
func (g Grants) Has(grant Grant) bool {
	_, ok := g[grant]
	return ok
}

// DefaultGrants returns the built in table: admins manage any user record,
// users read, update and delete only their own.
func DefaultGrants() Grants {
	var rows []Grant
	for _, verb := range []Verb{VerbCreate, VerbRead, VerbUpdate, VerbDelete} {
		for _, scope := range []Scope{ScopeOwn, ScopeAny} {
			rows = append(rows, Grant{Role: RoleAdmin, Resource: ResourceUsers, Verb: verb, Scope: scope})
		}
	}
	for _, verb := range []Verb{VerbRead, VerbUpdate, VerbDelete} {
		rows = append(rows, Grant{Role: RoleUser, Resource: ResourceUsers, Verb: verb, Scope: ScopeOwn})
	}
	return NewGrants(rows...)
}

// AuthorizationRequest is the input of a single authorization decision
type AuthorizationRequest struct {
	Role        UserRole
	Resource    Resource
	Action      Action
	RequesterID string
	// TargetID is the record owner, empty when the action has no target
	TargetID string
}

// Scope resolves own vs any. list is always any.
func (r AuthorizationRequest) Scope() Scope {
	if r.Action == ActionList {
		return ScopeAny
	}
	if r.TargetID != "" && r.RequesterID == r.TargetID {
		return ScopeOwn
	}
	return ScopeAny
}

// Authorizer decides grant or deny against a static grant table
type Authorizer struct {
	grants Grants
}

// NewAuthorizer creates an authorizer over grants, DefaultGrants when nil.
func NewAuthorizer(grants Grants) *Authorizer {
	if grants == nil {
		grants = DefaultGrants()
	}
	return &Authorizer{grants: grants}
}

// Authorize returns nil when the request is granted, ErrUnauthorized otherwise.
func (a *Authorizer) Authorize(req AuthorizationRequest) error {
	verb, ok := req.Action.Verb()
	if !ok {
		return WithMessage(ErrUnauthorized, fmt.Sprintf("unknown action %q", req.Action))
	}

	grant := Grant{
		Role:     req.Role,
		Resource: req.Resource,
		Verb:     verb,
		Scope:    req.Scope(),
	}

	if !a.grants.Has(grant) {
		return ErrUnauthorized
	}
	return nil
}
