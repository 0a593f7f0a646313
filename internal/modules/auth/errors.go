package auth

import "errors"

// Kind is the closed set of failure classes the auth service reports.
type Kind uint8

const (
	KindUnexpected Kind = iota
	KindValidation
	KindDuplicateUser
	KindInvalidCredentials
	KindInvalidRefreshToken
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateUser:
		return "duplicate_user"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidRefreshToken:
		return "invalid_refresh_token"
	default:
		return "unexpected"
	}
}

// Error carries a Kind and a caller-safe Message. The wrapped cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrInvalidCredentials) works on wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "Email and password are required"}
	ErrPasswordTooLong     = &Error{Kind: KindValidation, Message: "Password must be at most 72 bytes"}
	ErrEmailAlreadyExists  = &Error{Kind: KindDuplicateUser, Message: "User with this email already exists"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
	ErrInvalidRefreshToken = &Error{Kind: KindInvalidRefreshToken, Message: "Invalid refresh token"}
	ErrUnexpected          = &Error{Kind: KindUnexpected, Message: "Internal server error"}
)

func unexpected(err error) error {
	return &Error{Kind: KindUnexpected, Message: ErrUnexpected.Message, cause: err}
}

// KindOf classifies err; anything that is not an *Error is KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
