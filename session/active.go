package session

import (
	"sort"
	"sync"
	"time"
)

// ActiveToken is one entry of the active-token index.
type ActiveToken struct {
	Fingerprint string
	ExpiresAt   time.Time
}

// ActiveCache maps user ids to the fingerprints of their live tokens.
type ActiveCache struct {
	mu     sync.Mutex
	byUser map[int64]map[string]time.Time
}

// NewActiveCache returns an empty index.
func NewActiveCache() *ActiveCache {
	return &ActiveCache{byUser: make(map[int64]map[string]time.Time)}
}

// Put records a live token.
func (c *ActiveCache) Put(userID int64, fingerprint string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, ok := c.byUser[userID]
	if !ok {
		tokens = make(map[string]time.Time)
		c.byUser[userID] = tokens
	}
	tokens[fingerprint] = expiresAt
}

// Remove drops one token and reports whether it was present.
func (c *ActiveCache) Remove(userID int64, fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, ok := c.byUser[userID]
	if !ok {
		return false
	}
	if _, ok := tokens[fingerprint]; !ok {
		return false
	}
	delete(tokens, fingerprint)
	if len(tokens) == 0 {
		delete(c.byUser, userID)
	}
	return true
}

// RemoveUser drops and returns every token of userID.
func (c *ActiveCache) RemoveUser(userID int64) []ActiveToken {
	c.mu.Lock()
	tokens := c.byUser[userID]
	delete(c.byUser, userID)
	c.mu.Unlock()

	return sorted(tokens)
}

// List returns the user's unexpired tokens ordered by expiry, pruning the
// expired ones it observes.
func (c *ActiveCache) List(userID int64, now time.Time) []ActiveToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, ok := c.byUser[userID]
	if !ok {
		return nil
	}
	for fp, exp := range tokens {
		if now.After(exp) {
			delete(tokens, fp)
		}
	}
	if len(tokens) == 0 {
		delete(c.byUser, userID)
		return nil
	}
	return sorted(tokens)
}

// Len returns the number of indexed tokens across all users.
func (c *ActiveCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, tokens := range c.byUser {
		n += len(tokens)
	}
	return n
}

func sorted(tokens map[string]time.Time) []ActiveToken {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]ActiveToken, 0, len(tokens))
	for fp, exp := range tokens {
		out = append(out, ActiveToken{Fingerprint: fp, ExpiresAt: exp})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].Fingerprint < out[j].Fingerprint
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}
