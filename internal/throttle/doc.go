// Package throttle gates the login path with a fixed failure policy: three
// failed attempts from one client within five minutes lock that client out
// until the window that started with its first failure elapses.
//
// # State machine
//
// Clear (no entry) → Tracking (1–2 failures) → Locked (≥3 failures within
// the window) → Clear (window elapsed; the next failure starts a new window).
//
// # Backends
//
//   - [Memory] : one mutex-guarded map owned by the engine instance.
//   - [Redis] : one hash per client (prefix "thr:"), mutated by a Lua script
//     so concurrent failures from several processes never lose an increment.
//
// Both backends take the current time from the caller so an injected clock
// governs the whole policy.
//
// # What this package must NOT do
//
//   - Verify credentials or decide what a lockout means for the response.
//   - Make the policy configurable per request.
package throttle
