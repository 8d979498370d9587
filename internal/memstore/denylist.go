package memstore

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often Add scans for expired entries.
const sweepInterval = time.Minute

// Denylist is an in-memory [session.Denylist] with expiry-based pruning. Add
// drops expired entries at most once per sweepInterval of caller time, so
// the map holds roughly the tokens that are both logged out and unexpired.
type Denylist struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	lastSweep time.Time
}

// NewDenylist returns an empty denylist.
func NewDenylist() *Denylist {
	return &Denylist{entries: make(map[string]time.Time)}
}

func (d *Denylist) Add(_ context.Context, fingerprint string, expiresAt, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastSweep.IsZero() || now.Sub(d.lastSweep) >= sweepInterval || now.Before(d.lastSweep) {
		d.pruneLocked(now)
	}
	if !now.Before(expiresAt) {
		return nil
	}
	d.entries[fingerprint] = expiresAt
	return nil
}

func (d *Denylist) Contains(_ context.Context, fingerprint string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.entries[fingerprint]
	return ok, nil
}

// Prune drops entries whose token has expired by now and returns how many
// were dropped.
func (d *Denylist) Prune(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pruneLocked(now)
}

func (d *Denylist) pruneLocked(now time.Time) int {
	d.lastSweep = now
	n := 0
	for fp, exp := range d.entries {
		if !now.Before(exp) {
			delete(d.entries, fp)
			n++
		}
	}
	return n
}

// Len returns the number of denied fingerprints.
func (d *Denylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
