package goSession

import "github.com/MrEthical07/goSession/internal/metrics"

// MetricID identifies one engine counter or latency histogram.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of the engine's metrics.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricLoginSuccess             = metrics.MetricLoginSuccess
	MetricLoginFailure             = metrics.MetricLoginFailure
	MetricLoginThrottled           = metrics.MetricLoginThrottled
	MetricLoginRejectedMetadata    = metrics.MetricLoginRejectedMetadata
	MetricCredentialConfigError    = metrics.MetricCredentialConfigError
	MetricPrivilegeDenied          = metrics.MetricPrivilegeDenied
	MetricTokenIssued              = metrics.MetricTokenIssued
	MetricIssuanceFailed           = metrics.MetricIssuanceFailed
	MetricValidateSuccess          = metrics.MetricValidateSuccess
	MetricValidateInvalid          = metrics.MetricValidateInvalid
	MetricValidateExpired          = metrics.MetricValidateExpired
	MetricValidateRevoked          = metrics.MetricValidateRevoked
	MetricValidateUserNotFound     = metrics.MetricValidateUserNotFound
	MetricLogout                   = metrics.MetricLogout
	MetricLogoutAll                = metrics.MetricLogoutAll
	MetricPasswordChangeRevocation = metrics.MetricPasswordChangeRevocation
	MetricVerifierCacheHit         = metrics.MetricVerifierCacheHit
	MetricVerifierCacheMiss        = metrics.MetricVerifierCacheMiss
	MetricLoginLatency             = metrics.MetricLoginLatency
	MetricValidateLatency          = metrics.MetricValidateLatency
)

// MetricCount is the number of defined metric ids.
const MetricCount = metrics.Count
