package authkit

import (
	"context"
	"time"
)

// Account is the user record resolved through [AccountStore]. The engine
// never persists accounts itself; it only reads the fields below and asks
// the store to update the password hash or verification flag.
type Account struct {
	ID           string
	Email        string
	PhoneNumber  string
	FullName     string
	Role         string
	PasswordHash string
	Verified     bool
}

// CreateAccountInput is the input for [AccountStore.Create]. PasswordHash is
// already hashed by the engine.
type CreateAccountInput struct {
	Email        string
	PhoneNumber  string
	FullName     string
	Role         string
	PasswordHash string
}

// AccountStore is the external user-account collaborator. Lookups return
// [ErrAccountNotFound] when no account matches; Create returns
// [ErrDuplicateEmail] or [ErrDuplicatePhoneNumber] on unique-constraint
// collisions. Any other error is treated as an infrastructure failure.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, input CreateAccountInput) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
}

// OTPKind selects which verification flow an OTP record belongs to. At most
// one live record exists per kind per user.
type OTPKind string

const (
	// OTPKindVerifyEmail is the email ownership verification flow.
	OTPKindVerifyEmail OTPKind = "verify-email"
	// OTPKindResetPassword is the password recovery flow.
	OTPKindResetPassword OTPKind = "reset-password"
)

// EmailJob is a request to deliver an OTP email. Delivery is asynchronous
// (outbox pattern); the engine only enqueues and never waits for delivery.
type EmailJob struct {
	Kind      OTPKind
	Recipient string
	FullName  string
	OTP       string
	ExpiresIn time.Duration
}

// EmailDispatcher is the external outbound-email collaborator. Enqueue must
// return quickly; a non-nil error means the job could not be queued at all
// and surfaces to the engine's caller as a repository failure.
type EmailDispatcher interface {
	Enqueue(ctx context.Context, job EmailJob) error
}

// SessionEvent is a best-effort analytics record emitted whenever a session
// is issued. Source is "login" or "refresh".
type SessionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
}

// EventRecorder receives [SessionEvent] values. Recording is deliberately
// decoupled from the critical path: the engine logs a failed Record and
// continues, so an implementation can never block or fail a login or
// refresh.
type EventRecorder interface {
	RecordSessionIssued(ctx context.Context, event SessionEvent) error
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session binds a refresh token to a user server-side. Sessions live in
// Redis under a TTL derived from the refresh token's encoded expiry; the
// engine additionally double-checks ExpiresAt and token equality before
// honoring one.
type Session struct {
	SessionID    string `json:"sid"`
	UserID       string `json:"uid"`
	RefreshToken string `json:"refresh_token"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// RegisterInput is the input for [Engine.Register]. Password is plaintext
// and hashed by the engine before it reaches the account store.
type RegisterInput struct {
	Email       string
	PhoneNumber string
	FullName    string
	Role        string
	Password    string
}
