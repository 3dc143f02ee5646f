package accounts

import (
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Error is the structured failure raised by every account operation.
type Error = goerrors.Error

// ErrorKind is the closed set of failures the service reports. Its value is
// the text code sent to clients.
type ErrorKind string

const (
	KindServerError        ErrorKind = "SERVER_ERROR"
	KindDuplicateEmail     ErrorKind = "DUPLICATE_EMAIL"
	KindTokenNotFound      ErrorKind = "TOKEN_NOT_FOUND"
	KindTokenExpired       ErrorKind = "TOKEN_EXPIRED"
	KindEmailNotFound      ErrorKind = "EMAIL_NOT_FOUND"
	KindEmailNotConfirmed  ErrorKind = "EMAIL_NOT_CONFIRMED"
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindUserNotFound       ErrorKind = "USER_NOT_FOUND"
	KindNoUsersFound       ErrorKind = "NO_USERS_FOUND"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindValidationFailed   ErrorKind = "VALIDATION_FAILED"
	KindInvalidToken       ErrorKind = "INVALID_TOKEN"
	KindSessionExpired     ErrorKind = "SESSION_EXPIRED"
)

type kindMapping struct {
	category goerrors.Category
	status   int
}

var kindMappings = map[ErrorKind]kindMapping{
	KindServerError:        {goerrors.CategoryInternal, http.StatusInternalServerError},
	KindDuplicateEmail:     {goerrors.CategoryConflict, http.StatusBadRequest},
	KindTokenNotFound:      {goerrors.CategoryNotFound, http.StatusForbidden},
	KindTokenExpired:       {goerrors.CategoryAuth, http.StatusForbidden},
	KindEmailNotFound:      {goerrors.CategoryNotFound, http.StatusBadRequest},
	KindEmailNotConfirmed:  {goerrors.CategoryAuth, http.StatusUnauthorized},
	KindInvalidCredentials: {goerrors.CategoryAuth, http.StatusUnauthorized},
	KindUserNotFound:       {goerrors.CategoryNotFound, http.StatusBadRequest},
	KindNoUsersFound:       {goerrors.CategoryNotFound, http.StatusBadRequest},
	KindUnauthorized:       {goerrors.CategoryAuthz, http.StatusForbidden},
	KindValidationFailed:   {goerrors.CategoryValidation, http.StatusBadRequest},
	KindInvalidToken:       {goerrors.CategoryAuth, http.StatusUnauthorized},
	KindSessionExpired:     {goerrors.CategoryAuth, http.StatusUnauthorized},
}

// TextCode returns the machine readable code for the kind
func (k ErrorKind) TextCode() string {
	return string(k)
}

func (k ErrorKind) String() string {
	return string(k)
}

// Category returns the go-errors category the kind belongs to
func (k ErrorKind) Category() goerrors.Category {
	if m, ok := kindMappings[k]; ok {
		return m.category
	}
	return goerrors.CategoryInternal
}

// StatusCode returns the HTTP status the kind is reported with
func (k ErrorKind) StatusCode() int {
	if m, ok := kindMappings[k]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Error sources
const (
	SourceBody    = "body"
	SourceQuery   = "query"
	SourceParams  = "params"
	SourceHeader  = "header"
	SourceContext = "context"
	SourceServer  = "server"
)

// MetaSource is the metadata key holding the request part an error refers to
const MetaSource = "source"

func newError(kind ErrorKind, source, message string) *Error {
	return goerrors.New(message, kind.Category()).
		WithCode(kind.StatusCode()).
		WithTextCode(kind.TextCode()).
		WithMetadata(map[string]any{MetaSource: source})
}

var (
	ErrDuplicateEmail     = newError(KindDuplicateEmail, SourceBody, "email is already registered")
	ErrTokenNotFound      = newError(KindTokenNotFound, SourceQuery, "token not found")
	ErrTokenExpired       = newError(KindTokenExpired, SourceQuery, "token has expired")
	ErrEmailNotFound      = newError(KindEmailNotFound, SourceBody, "email not found")
	ErrEmailNotConfirmed  = newError(KindEmailNotConfirmed, SourceBody, "email has not been confirmed")
	ErrInvalidCredentials = newError(KindInvalidCredentials, SourceBody, "the credentials provided are invalid")
	ErrUserNotFound       = newError(KindUserNotFound, SourceParams, "user not found")
	ErrNoUsersFound       = newError(KindNoUsersFound, SourceServer, "no users found")
	ErrUnauthorized       = newError(KindUnauthorized, SourceHeader, "you are not authorized to perform this action")
	ErrInvalidToken       = newError(KindInvalidToken, SourceHeader, "invalid or missing session token")
	ErrSessionExpired     = newError(KindSessionExpired, SourceHeader, "session token has expired")
	ErrServer             = newError(KindServerError, SourceServer, "an unexpected server error occurred")

	// ErrIdentityNotInContext is raised when an authorization check runs
	// without a resolved identity. A wiring fault, so it reports 500.
	ErrIdentityNotInContext = newError(KindUserNotFound, SourceContext, "identity not found in request context").
		WithCode(http.StatusInternalServerError)

	// ErrNoEmptyString is returned when hashing an empty password
	ErrNoEmptyString = newError(KindValidationFailed, SourceBody, "password must not be empty")

	errValidationFailed = newError(KindValidationFailed, SourceBody, "validation failed")
)

// WithMessage returns a copy of base carrying message. Sentinels are never
// mutated.
func WithMessage(base *Error, message string) *Error {
	e := base.Clone()
	e.Message = message
	return e
}

// WithSource returns a copy of base pointing at another request part
func WithSource(base *Error, source string) *Error {
	return base.Clone().WithMetadata(map[string]any{MetaSource: source})
}

// WrapError returns a copy of base with err as its cause
func WrapError(base *Error, err error) *Error {
	e := base.Clone()
	e.Source = err
	return e
}

// ServerError wraps err as a KindServerError with message. err may be nil.
func ServerError(err error, message string) *Error {
	return WrapError(WithMessage(ErrServer, message), err)
}

var errorMappers = []goerrors.ErrorMapper{
	mapFiberError,
	func(err error) *Error { return ServerError(err, ErrServer.Message) },
}

// AsError normalizes any error into an *Error, defaulting to a server error.
// Rich errors from other packages keep their shape only when they describe
// a client error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	e := goerrors.MapToError(err, errorMappers)
	if _, known := kindMappings[ErrorKind(e.TextCode)]; known {
		return e
	}
	if e.Code >= http.StatusBadRequest && e.Code < http.StatusInternalServerError {
		return e
	}
	return ServerError(err, ErrServer.Message)
}

// ValidationError aggregates ozzo field errors into a single *Error, one
// field error per invalid field in name order.
func ValidationError(err error) *Error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !goerrors.As(err, &verrs) {
		return WrapError(WithMessage(errValidationFailed, err.Error()), err)
	}

	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]goerrors.FieldError, 0, len(keys))
	for _, k := range keys {
		if verrs[k] == nil {
			continue
		}
		fields = append(fields, goerrors.FieldError{Field: k, Message: verrs[k].Error()})
	}

	return goerrors.NewValidation("validation failed", fields...).
		WithCode(KindValidationFailed.StatusCode()).
		WithTextCode(KindValidationFailed.TextCode()).
		WithMetadata(map[string]any{MetaSource: SourceBody})
}

// KindOf returns the kind of err, KindServerError for anything unknown
func KindOf(err error) ErrorKind {
	var e *Error
	if !goerrors.As(err, &e) {
		return KindServerError
	}
	k := ErrorKind(e.TextCode)
	if _, ok := kindMappings[k]; ok {
		return k
	}
	return KindServerError
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.TextCode == kind.TextCode()
}

// SourceOf returns the request part err refers to
func SourceOf(err error) string {
	var e *Error
	if !goerrors.As(err, &e) {
		return SourceServer
	}
	if s, ok := e.Metadata[MetaSource].(string); ok && s != "" {
		return s
	}
	return SourceServer
}

// StatusOf returns the HTTP status err is reported with
func StatusOf(err error) int {
	var e *Error
	if !goerrors.As(err, &e) {
		return http.StatusInternalServerError
	}
	if e.Code >= http.StatusBadRequest {
		return e.Code
	}
	return KindOf(e).StatusCode()
}
