// Package credential checks supplied fast credentials against stored slow
// hashes, remembering successful verifications so repeat logins skip the
// slow comparison.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/dgraph-io/ristretto/v2"
)

// Config tunes the verification cache.
type Config struct {
	// MaxEntries bounds the number of remembered slow hashes.
	MaxEntries int64
	// TTL bounds how long an entry may be used. Zero keeps entries until
	// evicted or forgotten.
	TTL time.Duration
	// OnLookup, when set, observes every cache lookup.
	OnLookup func(hit bool)
}

// DefaultConfig returns the cache settings used by the engine.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 100_000,
		TTL:        24 * time.Hour,
	}
}

// Stats are cumulative verifier counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	SlowChecks  uint64
	SlowMatches uint64
}

// Verifier wraps a slow [password.Comparator] with a fast path keyed by the
// stored hash. Entries hold a SHA-256 digest of the accepted credential,
// never the credential itself.
type Verifier struct {
	cmp      password.Comparator
	cache    *ristretto.Cache[string, [sha256.Size]byte]
	ttl      time.Duration
	onLookup func(bool)

	hits        atomic.Uint64
	misses      atomic.Uint64
	slowChecks  atomic.Uint64
	slowMatches atomic.Uint64
}

// New builds a [Verifier]. Close releases the cache's background goroutines.
func New(cmp password.Comparator, cfg Config) (*Verifier, error) {
	if cmp == nil {
		return nil, errors.New("credential: comparator required")
	}
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("credential: MaxEntries must be > 0")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("credential: TTL must be >= 0")
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, [sha256.Size]byte]{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	onLookup := cfg.OnLookup
	if onLookup == nil {
		onLookup = func(bool) {}
	}

	return &Verifier{
		cmp:      cmp,
		cache:    cache,
		ttl:      cfg.TTL,
		onLookup: onLookup,
	}, nil
}

// Verify reports whether fast matches slowHash.
//
// A remembered hash is answered from the cache in constant time. Otherwise
// the slow comparator runs, and only a successful comparison is remembered.
// A stored hash the comparator cannot parse yields an error wrapping
// [password.ErrMalformedHash], never a plain false.
func (v *Verifier) Verify(slowHash, fast string) (bool, error) {
	digest := sha256.Sum256([]byte(fast))

	if cached, ok := v.cache.Get(slowHash); ok {
		v.hits.Add(1)
		v.onLookup(true)
		return subtle.ConstantTimeCompare(cached[:], digest[:]) == 1, nil
	}
	v.misses.Add(1)
	v.onLookup(false)

	v.slowChecks.Add(1)
	ok, err := v.cmp.Compare(slowHash, fast)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	v.slowMatches.Add(1)

	if v.ttl > 0 {
		v.cache.SetWithTTL(slowHash, digest, 1, v.ttl)
	} else {
		v.cache.Set(slowHash, digest, 1)
	}
	v.cache.Wait()

	return true, nil
}

// Forget drops whatever is remembered for slowHash. Called when the stored
// hash is replaced.
func (v *Verifier) Forget(slowHash string) {
	v.cache.Del(slowHash)
	v.cache.Wait()
}

// Stats returns cumulative counters.
func (v *Verifier) Stats() Stats {
	return Stats{
		Hits:        v.hits.Load(),
		Misses:      v.misses.Load(),
		SlowChecks:  v.slowChecks.Load(),
		SlowMatches: v.slowMatches.Load(),
	}
}

// Close stops the cache. The verifier must not be used afterwards.
func (v *Verifier) Close() {
	if v == nil || v.cache == nil {
		return
	}
	v.cache.Close()
}
