package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
)

// ErrNameTaken is returned by [Profiles.Add] for duplicate safe names.
var ErrNameTaken = errors.New("memstore: name taken")

// Profiles is an in-memory [session.ProfileStore].
type Profiles struct {
	mu     sync.RWMutex
	byID   map[int64]session.Profile
	byName map[string]int64
	nextID int64

	// Err, when set, is returned by every read.
	Err error
}

// NewProfiles returns an empty profile store. Ids start at 1.
func NewProfiles() *Profiles {
	return &Profiles{
		byID:   make(map[int64]session.Profile),
		byName: make(map[string]int64),
		nextID: 1,
	}
}

// Add stores a new profile and returns it with its assigned id.
func (p *Profiles) Add(name, passwordHash string, privileges privilege.Mask) (session.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	safe := session.SafeName(name)
	if _, ok := p.byName[safe]; ok {
		return session.Profile{}, ErrNameTaken
	}

	prof := session.Profile{
		ID:           p.nextID,
		Name:         name,
		SafeName:     safe,
		PasswordHash: passwordHash,
		Privileges:   privileges,
	}
	p.nextID++
	p.byID[prof.ID] = prof
	p.byName[safe] = prof.ID
	return prof, nil
}

// SetPasswordHash replaces the stored hash of userID.
func (p *Profiles) SetPasswordHash(userID int64, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prof, ok := p.byID[userID]
	if !ok {
		return session.ErrProfileNotFound
	}
	prof.PasswordHash = hash
	p.byID[userID] = prof
	return nil
}

// Delete removes userID.
func (p *Profiles) Delete(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prof, ok := p.byID[userID]; ok {
		delete(p.byName, prof.SafeName)
		delete(p.byID, userID)
	}
}

func (p *Profiles) ProfileByName(_ context.Context, name string) (session.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.Err != nil {
		return session.Profile{}, p.Err
	}
	id, ok := p.byName[session.SafeName(name)]
	if !ok {
		return session.Profile{}, session.ErrProfileNotFound
	}
	return p.byID[id], nil
}

func (p *Profiles) ProfileByID(_ context.Context, userID int64) (session.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.Err != nil {
		return session.Profile{}, p.Err
	}
	prof, ok := p.byID[userID]
	if !ok {
		return session.Profile{}, session.ErrProfileNotFound
	}
	return prof, nil
}

func (p *Profiles) PasswordHash(ctx context.Context, userID int64) (string, error) {
	prof, err := p.ProfileByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return prof.PasswordHash, nil
}

func (p *Profiles) PrivilegeMask(ctx context.Context, userID int64) (privilege.Mask, error) {
	prof, err := p.ProfileByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return prof.Privileges, nil
}
