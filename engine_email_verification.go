package authkit

import (
	"context"
	"time"

	"github.com/velohub/authkit/internal"
)

// RequestEmailVerification generates a verify-email OTP for the user,
// stores it with the full attempt budget (overwriting any previous one),
// and enqueues the delivery job. Delivery itself is asynchronous and not
// this engine's concern.
func (e *Engine) RequestEmailVerification(ctx context.Context, userID, email, fullName string) error {
	if e == nil || e.otps == nil || e.mailer == nil {
		return ErrEngineNotReady
	}

	if err := e.issueOTP(ctx, OTPKindVerifyEmail, userID, email, fullName, e.config.OTP.VerifyTTL); err != nil {
		e.metricInc(MetricVerificationFailure)
		return err
	}

	e.metricInc(MetricVerificationRequest)
	return nil
}

// ConfirmEmailVerification runs one attempt of the OTP state machine and,
// on success, marks the account verified. Failed attempts return an
// *OtpError whose Retriable flag tells "try again" apart from "request a
// new code".
func (e *Engine) ConfirmEmailVerification(ctx context.Context, userID, otp string) error {
	if e == nil || e.otps == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	status, record, err := e.otps.VerifyAttempt(ctx, OTPKindVerifyEmail, userID, otp)
	if err != nil {
		e.metricInc(MetricVerificationFailure)
		return err
	}

	switch status {
	case otpValid:
		if err := e.accounts.MarkVerified(ctx, record.UserID); err != nil {
			e.metricInc(MetricVerificationFailure)
			return repoErr("mark account verified", err)
		}
		e.metricInc(MetricVerificationSuccess)
		return nil
	case otpInvalidRetryable:
		e.metricInc(MetricVerificationFailure)
		return &OtpError{Retriable: true}
	default:
		e.metricInc(MetricVerificationFailure)
		e.metricInc(MetricOTPAttemptsExhausted)
		return &OtpError{Retriable: false}
	}
}

// issueOTP is shared by the verification and reset request flows: generate
// a numeric code, persist its digest keyed by (kind, user), enqueue the
// email.
func (e *Engine) issueOTP(ctx context.Context, kind OTPKind, userID, email, fullName string, ttl time.Duration) error {
	otp, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return repoErr("generate otp", err)
	}

	record := &emailOTPRecord{
		UserID:            userID,
		Email:             email,
		Kind:              kind,
		OTPHash:           internal.HashOTP(otp),
		ExpiresAt:         time.Now().Add(ttl).Unix(),
		AttemptsRemaining: e.config.OTP.MaxAttempts,
	}

	if err := e.otps.Save(ctx, record, ttl); err != nil {
		return err
	}

	if err := e.mailer.Enqueue(ctx, EmailJob{
		Kind:      kind,
		Recipient: email,
		FullName:  fullName,
		OTP:       otp,
		ExpiresIn: ttl,
	}); err != nil {
		return repoErr("enqueue otp email", err)
	}

	return nil
}
