package authkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/velohub/authkit/password"
	"github.com/velohub/authkit/token"
)

// Engine is the orchestrator: it composes the token codec, the Redis-backed
// stores, and the external collaborators into the login, refresh, logout,
// verification, and reset flows. Engine instances are configured through
// [Builder] and immutable afterwards; all methods are safe for concurrent
// use.
type Engine struct {
	config   Config
	codec    *token.Codec
	hasher   *password.Hasher
	sessions *sessionStore
	otps     *emailOTPStore
	resets   *resetTokenStore
	accounts AccountStore
	mailer   EmailDispatcher
	events   EventRecorder
	metrics  *Metrics

	// ownsEvents is set when Build created the dispatcher from a sink.
	ownsEvents bool
}

// Close releases engine-owned resources. Recorders supplied by the host are
// left alone; only a dispatcher the engine built itself is drained and
// stopped.
func (e *Engine) Close() {
	if e == nil || !e.ownsEvents {
		return
	}
	if d, ok := e.events.(*DispatcherRecorder); ok {
		d.Close()
	}
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e != nil {
		e.metrics.Inc(id)
	}
}

// Login authenticates an email/password pair and issues a fresh session and
// token pair. Unknown emails burn a dummy bcrypt comparison before failing
// so the response timing is indistinguishable from a wrong password; both
// cases return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, pw string) (*TokenPair, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.hasher.DummyVerify(pw)
			e.metricInc(MetricLoginFailure)
			return nil, ErrInvalidCredentials
		}
		e.metricInc(MetricLoginFailure)
		return nil, repoErr("get account by email", err)
	}

	if !e.hasher.Verify(pw, account.PasswordHash) {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}
	pw = ""

	pair, err := e.issueSession(ctx, account, "login")
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	return pair, nil
}

// Refresh rotates a session: it validates the presented refresh token
// against the stored session, mints a brand-new session and token pair,
// and deletes the old session. Refresh tokens are single-use: the old token
// is unusable the moment this returns.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	sess, err := e.validateRefresh(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	account, err := e.accounts.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// User deleted since issuance; the dangling session is garbage.
			if delErr := e.sessions.Delete(ctx, sess.SessionID); delErr != nil {
				e.metricInc(MetricRefreshFailure)
				return nil, delErr
			}
			e.metricInc(MetricRefreshFailure)
			return nil, ErrInvalidRefreshToken
		}
		e.metricInc(MetricRefreshFailure)
		return nil, repoErr("get account by id", err)
	}

	pair, err := e.issueSession(ctx, account, "refresh")
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	if err := e.sessions.Delete(ctx, sess.SessionID); err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	return pair, nil
}

// Logout validates the refresh token exactly like Refresh and then deletes
// only that session.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	sess, err := e.validateRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := e.sessions.Delete(ctx, sess.SessionID); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	return nil
}

// LogoutAll deletes every session for the user. A user with zero sessions
// is a no-op success. Store outages surface as *RepositoryError like
// everywhere else; there is no partial-success mode.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	if err := e.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	e.metricInc(MetricLogoutAll)
	return nil
}

// validateRefresh decodes the token and cross-checks it against the stored
// session: the session must exist, hold the exact same token string, and
// not be past its expiry. The store TTL already evicts expired sessions;
// the explicit check closes the gap between expiry and eviction.
func (e *Engine) validateRefresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := e.codec.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	sess, err := e.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidRefreshToken
	}

	if subtle.ConstantTimeCompare([]byte(sess.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, ErrInvalidRefreshToken
	}
	if time.Now().Unix() >= sess.ExpiresAt {
		if err := e.sessions.Delete(ctx, sess.SessionID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidRefreshToken
	}

	return sess, nil
}

// issueSession mints a new session ID, signs a token pair bound to it,
// persists the session under the refresh token's TTL, and records the
// issuance event best-effort.
func (e *Engine) issueSession(ctx context.Context, account *Account, source string) (*TokenPair, error) {
	sid, err := uuid.NewV7()
	if err != nil {
		return nil, repoErr("generate session id", err)
	}
	sessionID := sid.String()

	pair, err := e.codec.IssuePair(account.ID, account.Role, account.Verified, sessionID)
	if err != nil {
		return nil, repoErr("sign token pair", err)
	}

	now := time.Now()
	sess := &Session{
		SessionID:    sessionID,
		UserID:       account.ID,
		RefreshToken: pair.RefreshToken,
		IssuedAt:     now.Unix(),
		ExpiresAt:    pair.RefreshExpiresAt.Unix(),
	}

	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	e.recordSessionIssued(ctx, SessionEvent{
		Timestamp: now,
		UserID:    account.ID,
		SessionID: sessionID,
		Source:    source,
	})

	return &TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// recordSessionIssued is the one place errors are deliberately swallowed:
// the event write is attempted, and on failure the engine logs and moves
// on. Analytics can never block or fail a login or refresh.
func (e *Engine) recordSessionIssued(ctx context.Context, event SessionEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.RecordSessionIssued(ctx, event); err != nil {
		log.Printf("authkit: session event recording failed: %v", err)
	}
}
