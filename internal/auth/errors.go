package auth

import (
	"errors"
	"net/http"
)

// Kind is the machine-readable failure category returned to clients as error.code.
type Kind string

const (
	KindNoCredential   Kind = "NO_CREDENTIAL"
	KindInvalidToken   Kind = "INVALID_TOKEN"
	KindUnknownSubject Kind = "UNKNOWN_SUBJECT"
	KindDeactivated    Kind = "DEACTIVATED"
	KindStaleToken     Kind = "STALE_TOKEN"

	KindForbidden          Kind = "FORBIDDEN"
	KindAccessDenied       Kind = "ACCESS_DENIED"
	KindFirstLoginRequired Kind = "FIRST_LOGIN_REQUIRED"

	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
)

// All 401 kinds share one message so the body never says which check failed.
const msgReauthenticate = "Authentication required or session expired. Please log in again."

// Error is an authentication/authorization failure with its HTTP mapping.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Reason is internal detail (e.g. token reason code) for logs only.
	Reason string
	// Details is optional client-visible context (e.g. required roles on 403).
	Details any
	Err     error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Reason != "" {
		s += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func unauthorized(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Status: http.StatusUnauthorized, Message: msgReauthenticate, Reason: reason, Err: err}
}

// Unauthenticated is returned when a route needs a Principal and none is present.
func Unauthenticated() *Error {
	return unauthorized(KindNoCredential, "", nil)
}

// Forbidden is the role-matrix denial. requiredRoles is echoed to the client.
func Forbidden(requiredRoles []string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Status:  http.StatusForbidden,
		Message: "You do not have permission to perform this action.",
		Details: map[string]any{"requiredRoles": requiredRoles},
	}
}

// AccessDenied is the ownership-rule denial on a write to an existing record.
func AccessDenied() *Error {
	return &Error{
		Kind:    KindAccessDenied,
		Status:  http.StatusForbidden,
		Message: "You can only modify records you own or are assigned to.",
	}
}

func firstLoginRequired() *Error {
	return &Error{
		Kind:    KindFirstLoginRequired,
		Status:  http.StatusForbidden,
		Message: "You must change your temporary password before continuing.",
	}
}

func storeUnavailable(err error) *Error {
	return &Error{
		Kind:    KindStoreUnavailable,
		Status:  http.StatusServiceUnavailable,
		Message: "Authentication service temporarily unavailable.",
		Err:     err,
	}
}

// Credential-flow errors (login, password change, provisioning).
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrIncorrectPassword   = errors.New("current password is incorrect")
	ErrWeakPassword        = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
	ErrFirstLoginCompleted = errors.New("first login already completed")
	ErrSelfLockout         = errors.New("administrators cannot deactivate or demote themselves")
)
