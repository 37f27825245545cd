package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful password logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed password logins."},
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Accounts registered with a password."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected because the email or username exists."},
	{ID: authcore.MetricOAuthLoginSuccess, Name: "authcore_oauth_login_success_total", Help: "Successful identity provider logins."},
	{ID: authcore.MetricOAuthLoginFailure, Name: "authcore_oauth_login_failure_total", Help: "Failed identity provider logins."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Sessions issued."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Superseded refresh secrets presented again."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session revocations."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Account-wide revocations."},
	{ID: authcore.MetricRateLimited, Name: "authcore_rate_limited_total", Help: "Requests denied by a rate limit."},
	{ID: authcore.MetricVerificationRequested, Name: "authcore_verification_requested_total", Help: "Verification codes issued."},
	{ID: authcore.MetricVerificationSuccess, Name: "authcore_verification_success_total", Help: "Accounts verified by code."},
	{ID: authcore.MetricVerificationFailure, Name: "authcore_verification_failure_total", Help: "Rejected verification code submissions."},
	{ID: authcore.MetricAuthenticateSuccess, Name: "authcore_authenticate_success_total", Help: "Access tokens accepted by Authenticate."},
	{ID: authcore.MetricAuthenticateFailure, Name: "authcore_authenticate_failure_total", Help: "Access tokens rejected by Authenticate."},
	{ID: authcore.MetricCacheHit, Name: "authcore_cache_hit_total", Help: "Session cache hits."},
	{ID: authcore.MetricCacheMiss, Name: "authcore_cache_miss_total", Help: "Session cache misses."},
	{ID: authcore.MetricCacheError, Name: "authcore_cache_error_total", Help: "Session cache operations that failed."},
	{ID: authcore.MetricStoreError, Name: "authcore_store_error_total", Help: "Credential store operations that failed."},
	{ID: authcore.MetricCredentialsSwept, Name: "authcore_credentials_swept_total", Help: "Inactive refresh credentials deleted by the sweeper."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's fixed
// latency buckets.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix names each bucket where a label value cannot carry
// a dot.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
