package authkit

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/velohub/authkit/password"
	"github.com/velohub/authkit/token"
)

// Builder assembles an [Engine]. Required collaborators are a Redis client,
// an [AccountStore], and an [EmailDispatcher]; everything else has a
// default. A Builder is single-use.
type Builder struct {
	config Config

	redis    redis.UniversalClient
	accounts AccountStore
	mailer   EmailDispatcher
	recorder EventRecorder
	sink     EventSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Call it before the other
// With* methods that tweak individual fields.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the session, OTP, and reset-token
// stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the external user-account collaborator.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithEmailDispatcher sets the outbound-email collaborator.
func (b *Builder) WithEmailDispatcher(dispatcher EmailDispatcher) *Builder {
	b.mailer = dispatcher
	return b
}

// WithEventRecorder sets a caller-owned recorder for session events. The
// engine will not close it.
func (b *Builder) WithEventRecorder(recorder EventRecorder) *Builder {
	b.recorder = recorder
	return b
}

// WithEventSink sets a sink and lets the engine own the async dispatcher in
// front of it. The dispatcher is drained and stopped by [Engine.Close].
// Ignored when WithEventRecorder was also called.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and returns the
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.mailer == nil {
		return nil, errors.New("email dispatcher required")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(b.config.Token)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password.Cost)
	if err != nil {
		return nil, err
	}

	var events EventRecorder
	ownsEvents := false
	switch {
	case b.recorder != nil:
		events = b.recorder
	case b.sink != nil:
		events = NewDispatcherRecorder(b.config.Events, b.sink)
		ownsEvents = true
	default:
		events = NoOpRecorder{}
	}

	prefix := b.config.Store.KeyPrefix

	engine := &Engine{
		config:   b.config,
		codec:    codec,
		hasher:   hasher,
		sessions: newSessionStore(b.redis, prefix),
		otps:     newEmailOTPStore(b.redis, prefix),
		resets:   newResetTokenStore(b.redis, prefix),
		accounts: b.accounts,
		mailer:   b.mailer,
		events:   events,
		metrics:  NewMetrics(b.config.Metrics.Enabled),

		ownsEvents: ownsEvents,
	}

	b.built = true

	return engine, nil
}
