package authkit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login for a bad email/password
	// combination. Unknown emails and wrong passwords are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers malformed, expired, signature-invalid,
	// mismatched, and rotated-out refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidResetToken covers unknown, expired, already-consumed, and
	// user-deleted reset tokens.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrInvalidOtp is the errors.Is target for *OtpError values.
	ErrInvalidOtp = errors.New("invalid otp")
	// ErrAccountNotFound must be returned by AccountStore lookups when no
	// account matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail must be returned by AccountStore.Create on an email
	// collision. The engine passes it through untouched.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicatePhoneNumber must be returned by AccountStore.Create on a
	// phone number collision. The engine passes it through untouched.
	ErrDuplicatePhoneNumber = errors.New("phone number already registered")
	// ErrEngineNotReady is returned when an Engine is used before Build
	// completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// OtpError reports a failed OTP attempt. Retriable is true while the stored
// record still has attempts remaining. It is false once the record is gone
// (exhausted, expired, or never issued) and the caller must request a new
// code.
type OtpError struct {
	Retriable bool
}

func (e *OtpError) Error() string {
	if e.Retriable {
		return "invalid otp"
	}
	return "invalid otp: attempts exhausted"
}

// Is makes errors.Is(err, ErrInvalidOtp) match any *OtpError.
func (e *OtpError) Is(target error) bool {
	return target == ErrInvalidOtp
}

// RepositoryError wraps an infrastructure failure (store unreachable,
// timeout, signing failure) with the name of the failing operation. There is
// no safe degraded mode for authentication, so call sites treat these as
// fatal rather than catching and continuing.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("authkit: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func repoErr(op string, err error) error {
	return &RepositoryError{Op: op, Err: err}
}
