package accounts

// UserIdentity adapts a User into the Identity interface.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the public uid, never the primary key.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.UID
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// Role returns the user's current role name.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	return u.user.RoleName()
}

// User returns the wrapped record
func (u UserIdentity) User() *User {
	return u.user
}
