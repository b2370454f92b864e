package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Completed logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goSession.MetricRefreshReuseDetected, Name: "gosession_refresh_reuse_detected_total", Help: "Superseded refresh tokens presented again."},
	{ID: goSession.MetricReplayDetected, Name: "gosession_replay_detected_total", Help: "Replay anomalies recorded."},
	{ID: goSession.MetricRefreshRateLimited, Name: "gosession_refresh_rate_limited_total", Help: "Refresh attempts rejected by the throttle."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Refresh sessions created."},
	{ID: goSession.MetricSessionInvalidated, Name: "gosession_session_invalidated_total", Help: "Refresh sessions cleared."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logout operations."},
	{ID: goSession.MetricDisconnect, Name: "gosession_disconnect_total", Help: "Provider disconnect operations."},
	{ID: goSession.MetricUpstreamRevocationFailure, Name: "gosession_upstream_revocation_failure_total", Help: "Failed best-effort upstream revocations."},
	{ID: goSession.MetricScopesMissing, Name: "gosession_scopes_missing_total", Help: "Scope checks that found missing scopes."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Accepted access tokens."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goSession.MetricDecryptFailure, Name: "gosession_decrypt_failure_total", Help: "Stored credentials that failed to decrypt."},
	{ID: goSession.MetricProviderTokenRefreshed, Name: "gosession_provider_token_refreshed_total", Help: "Provider access tokens refreshed upstream."},
	{ID: goSession.MetricProviderTokenRefreshFailure, Name: "gosession_provider_token_refresh_failure_total", Help: "Failed provider token refreshes."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh rotation latency, session store round trips included."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the finite upper bounds in seconds. The engine's last
// bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
