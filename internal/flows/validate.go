package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureInvalid
	ValidateFailureExpired
	ValidateFailureRevoked
	ValidateFailureUserNotFound
	ValidateFailureBackend
)

// ValidateResult returns either claims or a classified failure.
type ValidateResult struct {
	Failure   ValidateFailureKind
	Err       error
	Claims    token.Claims
	ExpiresAt time.Time
}

// ValidateStore is the slice of the session store used by validation.
type ValidateStore interface {
	Validate(ctx context.Context, opaque string, now time.Time) (token.Claims, error)
}

// ValidateMetrics carries metric IDs needed by the validate flow.
type ValidateMetrics struct {
	ValidateSuccess      int
	ValidateInvalid      int
	ValidateExpired      int
	ValidateRevoked      int
	ValidateUserNotFound int
	ValidateLatency      int
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Store     ValidateStore
	Now       func() time.Time
	MetricInc func(int)
	Observe   func(int, time.Duration)
	Metrics   ValidateMetrics
}

// RunValidate checks opaque against the session store and classifies the
// outcome.
func RunValidate(ctx context.Context, opaque string, deps ValidateDeps) ValidateResult {
	if deps.Store == nil {
		return ValidateResult{Failure: ValidateFailureBackend, Err: errors.New("validate store not configured")}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Observe == nil {
		deps.Observe = func(int, time.Duration) {}
	}

	start := time.Now()
	defer func() {
		deps.Observe(deps.Metrics.ValidateLatency, time.Since(start))
	}()

	claims, err := deps.Store.Validate(ctx, opaque, deps.Now())
	if err == nil {
		deps.MetricInc(deps.Metrics.ValidateSuccess)
		return ValidateResult{Claims: claims, ExpiresAt: token.ExpiresAt(claims)}
	}

	kind := classifyValidateError(err)
	switch kind {
	case ValidateFailureInvalid:
		deps.MetricInc(deps.Metrics.ValidateInvalid)
	case ValidateFailureExpired:
		deps.MetricInc(deps.Metrics.ValidateExpired)
	case ValidateFailureRevoked:
		deps.MetricInc(deps.Metrics.ValidateRevoked)
	case ValidateFailureUserNotFound:
		deps.MetricInc(deps.Metrics.ValidateUserNotFound)
	}
	return ValidateResult{Failure: kind, Err: err}
}

func classifyValidateError(err error) ValidateFailureKind {
	switch {
	case errors.Is(err, session.ErrTokenInvalid):
		return ValidateFailureInvalid
	case errors.Is(err, session.ErrTokenExpired):
		return ValidateFailureExpired
	case errors.Is(err, session.ErrTokenRevoked):
		return ValidateFailureRevoked
	case errors.Is(err, session.ErrUserNotFound):
		return ValidateFailureUserNotFound
	default:
		return ValidateFailureBackend
	}
}
