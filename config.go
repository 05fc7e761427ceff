package authkit

import (
	"errors"
	"time"

	"github.com/velohub/authkit/token"
)

// Config carries every tunable of the engine. Instances are set up once and
// treated as immutable after Build.
type Config struct {
	Token    token.Config
	OTP      OTPConfig
	Reset    ResetConfig
	Store    StoreConfig
	Password PasswordConfig
	Events   EventConfig
	Metrics  MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls the numeric one-time codes used for email verification
// and password reset. MaxAttempts bounds guessing regardless of TTL.
type OTPConfig struct {
	Digits      int
	VerifyTTL   time.Duration
	ResetTTL    time.Duration
	MaxAttempts int
}

/*
====================================
RESET TOKEN CONFIG
====================================
*/

// ResetConfig controls the single-use reset token minted after a successful
// reset-password OTP verification.
type ResetConfig struct {
	TokenTTL time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the Redis key layout. KeyPrefix namespaces every key
// the engine writes ("session:", "user-sessions:", "otp:", "reset-token:").
type StoreConfig struct {
	KeyPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls bcrypt hashing.
type PasswordConfig struct {
	Cost int
}

/*
====================================
EVENTS / METRICS CONFIG
====================================
*/

// EventConfig controls the asynchronous session-event dispatcher.
type EventConfig struct {
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process atomic counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 15 minute access tokens,
// 30 day refresh tokens, 6-digit OTPs (10m verify / 5m reset), 5 attempts,
// 10 minute reset tokens. The signing secret has no default and must be
// supplied.
func DefaultConfig() Config {
	return Config{
		Token: token.Config{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "authkit",
		},
		OTP: OTPConfig{
			Digits:      6,
			VerifyTTL:   10 * time.Minute,
			ResetTTL:    5 * time.Minute,
			MaxAttempts: 5,
		},
		Reset: ResetConfig{
			TokenTTL: 10 * time.Minute,
		},
		Store: StoreConfig{
			KeyPrefix: "",
		},
		Password: PasswordConfig{
			Cost: 10,
		},
		Events: EventConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with. It is called
// by Build; direct construction should call it too.
func (c Config) Validate() error {
	if len(c.Token.Secret) == 0 {
		return errors.New("token signing secret required")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("invalid token TTL configuration")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if c.OTP.VerifyTTL <= 0 || c.OTP.ResetTTL <= 0 {
		return errors.New("invalid otp TTL configuration")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be positive")
	}
	if c.Reset.TokenTTL <= 0 {
		return errors.New("invalid reset token TTL configuration")
	}
	return nil
}
