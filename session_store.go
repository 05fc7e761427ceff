package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionStore persists refresh sessions in Redis. Expiry is enforced by
// TTL: a session key lives exactly as long as its refresh token is valid.
// A per-user set indexes session IDs for bulk invalidation.
type sessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newSessionStore(client redis.UniversalClient, prefix string) *sessionStore {
	return &sessionStore{redis: client, prefix: prefix}
}

func (s *sessionStore) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *sessionStore) userKey(userID string) string {
	return s.prefix + "user-sessions:" + userID
}

// Save writes the session under its remaining TTL and adds the session ID
// to the user's set, refreshing the set's TTL alongside.
func (s *sessionStore) Save(ctx context.Context, sess *Session) error {
	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl <= 0 {
		return repoErr("save session", errors.New("session already expired"))
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return repoErr("save session", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.SessionID)
		pipe.Expire(ctx, s.userKey(sess.UserID), ttl)
		return nil
	})
	if err != nil {
		return repoErr("save session", err)
	}

	return nil
}

// Get returns the session, or nil if the key has expired or never existed.
func (s *sessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, repoErr("get session", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, repoErr("get session", err)
	}

	return &sess, nil
}

// Delete removes a session and its index entry. Absent sessions are a
// no-op success.
func (s *sessionStore) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.SRem(ctx, s.userKey(sess.UserID), sessionID)
		return nil
	})
	if err != nil {
		return repoErr("delete session", err)
	}

	return nil
}

// DeleteAllForUser reads the user's session-id set, deletes every session,
// then deletes the set. A user with no sessions is a no-op success.
//
// The read and delete phases are separate pipeline round trips, so a
// session created in between is not captured; it expires naturally or is
// caught by the next call. Matching guarantees on the set read are enough
// for logout-all semantics.
func (s *sessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return repoErr("delete all sessions", err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, id := range sessionIDs {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return repoErr("delete all sessions", err)
	}

	return nil
}
