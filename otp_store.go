package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velohub/authkit/internal"
)

// otpVerifyStatus is the outcome of a single OTP attempt.
type otpVerifyStatus int

const (
	otpValid otpVerifyStatus = iota
	otpInvalidRetryable
	otpInvalidTerminal
)

// emailOTPRecord is the stored challenge for one (kind, user) pair. Only
// the SHA-256 digest of the code is persisted.
type emailOTPRecord struct {
	UserID            string  `json:"uid"`
	Email             string  `json:"email"`
	Kind              OTPKind `json:"kind"`
	OTPHash           []byte  `json:"otp_hash"`
	ExpiresAt         int64   `json:"exp"`
	AttemptsRemaining int     `json:"attempts_remaining"`
}

// emailOTPStore keeps at most one live OTP per kind per user; saving a new
// record overwrites the previous one. Attempt accounting runs inside a
// Redis WATCH transaction so two racing attempts cannot both observe the
// same stale counter or both consume the record.
type emailOTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newEmailOTPStore(client redis.UniversalClient, prefix string) *emailOTPStore {
	return &emailOTPStore{redis: client, prefix: prefix}
}

func (s *emailOTPStore) key(kind OTPKind, userID string) string {
	return s.prefix + "otp:" + string(kind) + ":" + userID
}

// Save writes (or overwrites) the live OTP record for (kind, user).
func (s *emailOTPStore) Save(ctx context.Context, record *emailOTPRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return repoErr("save otp", err)
	}

	if err := s.redis.Set(ctx, s.key(record.Kind, record.UserID), data, ttl).Err(); err != nil {
		return repoErr("save otp", err)
	}

	return nil
}

// Get returns the live record, or nil when none exists.
func (s *emailOTPStore) Get(ctx context.Context, kind OTPKind, userID string) (*emailOTPRecord, error) {
	data, err := s.redis.Get(ctx, s.key(kind, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, repoErr("get otp", err)
	}

	var record emailOTPRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, repoErr("get otp", err)
	}

	return &record, nil
}

// VerifyAttempt runs one transition of the attempt state machine:
//
//	no record            -> otpInvalidTerminal
//	correct code         -> delete record, otpValid
//	wrong, attempts > 1  -> decrement and persist, otpInvalidRetryable
//	wrong, attempts == 1 -> delete record, otpInvalidTerminal
//
// On otpValid the consumed record is returned so the caller can read the
// bound user and email.
func (s *emailOTPStore) VerifyAttempt(ctx context.Context, kind OTPKind, userID, otp string) (otpVerifyStatus, *emailOTPRecord, error) {
	const maxRetries = 4
	key := s.key(kind, userID)

	for i := 0; i < maxRetries; i++ {
		var (
			status  otpVerifyStatus
			matched *emailOTPRecord
		)

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var record emailOTPRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return err
			}

			// TTL normally removes expired records; the explicit check
			// closes the gap between expiry and eviction.
			remaining := time.Until(time.Unix(record.ExpiresAt, 0))
			if remaining <= 0 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				status = otpInvalidTerminal
				return nil
			}

			if internal.OTPEqual(record.OTPHash, otp) {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				status = otpValid
				matched = &record
				return nil
			}

			if record.AttemptsRemaining <= 1 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				status = otpInvalidTerminal
				return nil
			}

			record.AttemptsRemaining--
			updated, err := json.Marshal(&record)
			if err != nil {
				return err
			}
			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, remaining)
				return nil
			}); err != nil {
				return err
			}
			status = otpInvalidRetryable
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return otpInvalidTerminal, nil, nil
			}
			return otpInvalidTerminal, nil, repoErr("verify otp attempt", err)
		}

		return status, matched, nil
	}

	return otpInvalidTerminal, nil, repoErr("verify otp attempt", errors.New("transaction contention"))
}

// Delete removes the live record, if any.
func (s *emailOTPStore) Delete(ctx context.Context, kind OTPKind, userID string) error {
	if err := s.redis.Del(ctx, s.key(kind, userID)).Err(); err != nil {
		return repoErr("delete otp", err)
	}
	return nil
}
