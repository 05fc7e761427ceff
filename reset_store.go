package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// resetTokenRecord bridges "verify OTP" and "set new password" across two
// requests. Keyed by the token value itself; consumed exactly once.
type resetTokenRecord struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"exp"`
}

type resetTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newResetTokenStore(client redis.UniversalClient, prefix string) *resetTokenStore {
	return &resetTokenStore{redis: client, prefix: prefix}
}

func (s *resetTokenStore) key(token string) string {
	return s.prefix + "reset-token:" + token
}

// Save writes the record under the token's TTL.
func (s *resetTokenStore) Save(ctx context.Context, resetToken string, record *resetTokenRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return repoErr("save reset token", err)
	}

	if err := s.redis.Set(ctx, s.key(resetToken), data, ttl).Err(); err != nil {
		return repoErr("save reset token", err)
	}

	return nil
}

// Consume reads and deletes the record in a single GETDEL, so two racing
// confirmations cannot both succeed. Returns nil when the token is unknown,
// expired, or already consumed.
func (s *resetTokenStore) Consume(ctx context.Context, resetToken string) (*resetTokenRecord, error) {
	data, err := s.redis.GetDel(ctx, s.key(resetToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, repoErr("consume reset token", err)
	}

	var record resetTokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, repoErr("consume reset token", err)
	}

	// Defense against a store that returned a value past its expiry.
	if time.Now().Unix() >= record.ExpiresAt {
		return nil, nil
	}

	return &record, nil
}
