package authkit

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/velohub/authkit/internal"
)

// RequestPasswordReset starts the recovery flow. Unknown emails return
// success after a randomized delay, so the response is indistinguishable
// from the existing-user case and accounts cannot be enumerated.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.otps == nil || e.mailer == nil {
		return ErrEngineNotReady
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			if err := sleepEnumerationDelay(ctx); err != nil {
				return err
			}
			e.metricInc(MetricResetRequest)
			return nil
		}
		return repoErr("get account by email", err)
	}

	if err := e.issueOTP(ctx, OTPKindResetPassword, account.ID, account.Email, account.FullName, e.config.OTP.ResetTTL); err != nil {
		return err
	}

	e.metricInc(MetricResetRequest)
	return nil
}

// ConfirmPasswordResetOTP runs one attempt of the reset-password OTP state
// machine. On success it mints a high-entropy single-use reset token bound
// to the user and email and returns it; the token, not the OTP, is what the
// client holds for the confirmation step.
func (e *Engine) ConfirmPasswordResetOTP(ctx context.Context, email, otp string) (string, error) {
	if e == nil || e.otps == nil || e.resets == nil {
		return "", ErrEngineNotReady
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Same terminal outcome as "no record": nothing to consume.
			e.metricInc(MetricResetConfirmFailure)
			return "", &OtpError{Retriable: false}
		}
		return "", repoErr("get account by email", err)
	}

	status, record, err := e.otps.VerifyAttempt(ctx, OTPKindResetPassword, account.ID, otp)
	if err != nil {
		e.metricInc(MetricResetConfirmFailure)
		return "", err
	}

	switch status {
	case otpValid:
	case otpInvalidRetryable:
		e.metricInc(MetricResetConfirmFailure)
		return "", &OtpError{Retriable: true}
	default:
		e.metricInc(MetricResetConfirmFailure)
		e.metricInc(MetricOTPAttemptsExhausted)
		return "", &OtpError{Retriable: false}
	}

	resetToken, err := internal.NewResetToken()
	if err != nil {
		return "", repoErr("generate reset token", err)
	}

	if err := e.resets.Save(ctx, resetToken, &resetTokenRecord{
		UserID:    record.UserID,
		Email:     record.Email,
		ExpiresAt: time.Now().Add(e.config.Reset.TokenTTL).Unix(),
	}, e.config.Reset.TokenTTL); err != nil {
		return "", err
	}

	return resetToken, nil
}

// ResetPassword consumes the reset token exactly once (a second use fails
// with [ErrInvalidResetToken]), persists the new password hash, and revokes
// every session of the user so previously issued tokens die with the old
// password.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.resets == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	record, err := e.resets.Consume(ctx, resetToken)
	if err != nil {
		e.metricInc(MetricResetConfirmFailure)
		return err
	}
	if record == nil {
		e.metricInc(MetricResetConfirmFailure)
		return ErrInvalidResetToken
	}

	account, err := e.accounts.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricResetConfirmFailure)
			return ErrInvalidResetToken
		}
		return repoErr("get account by id", err)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return repoErr("hash password", err)
	}
	newPassword = ""

	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return repoErr("update password hash", err)
	}

	if err := e.LogoutAll(ctx, account.ID); err != nil {
		return err
	}

	e.metricInc(MetricResetConfirmSuccess)
	return nil
}

// sleepEnumerationDelay masks the absence of an account with a 20-40ms
// random pause, roughly the cost of the store write the real path performs.
func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	timer := time.NewTimer(time.Duration(minMs+n.Int64()) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
