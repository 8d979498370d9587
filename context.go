package goSession

import "context"

type ctxKey int

const (
	ctxKeyClientIP ctxKey = iota
	ctxKeyUserAgent
	ctxKeyIdentity
)

// WithClientIP attaches the caller's address to ctx. Audit events emitted
// while serving ctx record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// WithUserAgent attaches the caller's User-Agent to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// WithIdentity stores a validated identity in ctx. HTTP middleware uses it to
// hand the caller's identity to handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, identity)
}

// IdentityFromContext returns the identity stored by [WithIdentity].
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, _ := ctxValue[*Identity](ctx, ctxKeyIdentity)
	return identity, identity != nil
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctxValue[string](ctx, ctxKeyClientIP)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	ua, _ := ctxValue[string](ctx, ctxKeyUserAgent)
	return ua
}

func ctxValue[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}
