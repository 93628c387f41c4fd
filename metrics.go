package authcore

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint8

const (
	// MetricSignUpSuccess counts committed registrations.
	MetricSignUpSuccess MetricID = iota
	// MetricSignUpDuplicate counts registrations rejected for a taken email.
	MetricSignUpDuplicate
	// MetricSignUpPolicyRejected counts password-policy rejections.
	MetricSignUpPolicyRejected
	// MetricBreachRejected counts passwords rejected by the breach screen.
	MetricBreachRejected
	// MetricBreachUnavailable counts breach-screen degrades (fail-open).
	MetricBreachUnavailable
	// MetricLoginSuccess counts successful first-factor logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected first-factor logins.
	MetricLoginFailure
	// MetricSecondFactorRequired counts logins parked on a TOTP challenge.
	MetricSecondFactorRequired
	// MetricSecondFactorSuccess counts confirmed second factors.
	MetricSecondFactorSuccess
	// MetricSecondFactorFailure counts rejected second-factor codes.
	MetricSecondFactorFailure
	// MetricVerificationIssued counts verification tokens minted.
	MetricVerificationIssued
	// MetricVerificationRedeemed counts verification tokens redeemed.
	MetricVerificationRedeemed

	metricIDCount
)

// Metrics holds lock-free counters for the engine. When disabled every
// operation is a no-op so the write path stays allocation-free either way.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
