package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef maps one engine counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef maps one engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected for unknown user or bad credential."},
	{ID: goSession.MetricLoginThrottled, Name: "gosession_login_throttled_total", Help: "Logins refused by the failure throttle."},
	{ID: goSession.MetricLoginRejectedMetadata, Name: "gosession_login_rejected_metadata_total", Help: "Logins missing client address or agent."},
	{ID: goSession.MetricCredentialConfigError, Name: "gosession_credential_config_error_total", Help: "Logins against a malformed stored hash."},
	{ID: goSession.MetricPrivilegeDenied, Name: "gosession_privilege_denied_total", Help: "Logins requesting privileges outside the grant."},
	{ID: goSession.MetricTokenIssued, Name: "gosession_token_issued_total", Help: "Issued tokens."},
	{ID: goSession.MetricIssuanceFailed, Name: "gosession_issuance_failed_total", Help: "Token issuances that failed to persist."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Successful token validations."},
	{ID: goSession.MetricValidateInvalid, Name: "gosession_validate_invalid_total", Help: "Validations of undecodable tokens."},
	{ID: goSession.MetricValidateExpired, Name: "gosession_validate_expired_total", Help: "Validations of expired tokens."},
	{ID: goSession.MetricValidateRevoked, Name: "gosession_validate_revoked_total", Help: "Validations of revoked tokens."},
	{ID: goSession.MetricValidateUserNotFound, Name: "gosession_validate_user_not_found_total", Help: "Validations for deleted users."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Single-token logouts."},
	{ID: goSession.MetricLogoutAll, Name: "gosession_logout_all_total", Help: "Revoke-all operations."},
	{ID: goSession.MetricPasswordChangeRevocation, Name: "gosession_password_change_revocation_total", Help: "Revocations triggered by password changes."},
	{ID: goSession.MetricVerifierCacheHit, Name: "gosession_verifier_cache_hit_total", Help: "Credential checks answered from the verifier cache."},
	{ID: goSession.MetricVerifierCacheMiss, Name: "gosession_verifier_cache_miss_total", Help: "Credential checks that ran the slow hash."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoginLatency, Name: "gosession_login_latency_seconds", Help: "Login latency histogram."},
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Validate latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds, in seconds, of the eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds mirrors HistogramBounds without the +Inf bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
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
