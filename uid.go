package accounts

import "github.com/lithammer/shortuuid"

// UIDLength is the length of every generated public uid
const UIDLength = 22

// NewUID returns a new public user id
func NewUID() string {
	return shortuuid.New()
}
