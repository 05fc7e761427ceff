package authkit

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint8

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRefreshSuccess counts successful rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricLogout counts single-session logouts.
	MetricLogout
	// MetricLogoutAll counts bulk invalidations.
	MetricLogoutAll
	// MetricVerificationRequest counts issued verify-email OTPs.
	MetricVerificationRequest
	// MetricVerificationSuccess counts confirmed email verifications.
	MetricVerificationSuccess
	// MetricVerificationFailure counts failed verification attempts.
	MetricVerificationFailure
	// MetricResetRequest counts issued reset-password OTPs.
	MetricResetRequest
	// MetricResetConfirmSuccess counts completed password resets.
	MetricResetConfirmSuccess
	// MetricResetConfirmFailure counts failed reset confirmations.
	MetricResetConfirmFailure
	// MetricOTPAttemptsExhausted counts OTP records purged by exhaustion.
	MetricOTPAttemptsExhausted

	metricIDCount
)

// Metrics holds atomic counters. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics creates a Metrics instance. When enabled is false all
// operations are no-ops.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
