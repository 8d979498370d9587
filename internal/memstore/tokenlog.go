package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// TokenLog is an in-memory [session.TokenLog].
type TokenLog struct {
	mu          sync.Mutex
	issuances   []session.IssuanceRecord
	revocations []session.RevocationRecord

	// FailIssuance and FailRevocation, when set, are returned instead of
	// appending.
	FailIssuance   error
	FailRevocation error
	// Delay is slept before each append, honoring ctx.
	Delay time.Duration
}

// NewTokenLog returns an empty log.
func NewTokenLog() *TokenLog {
	return &TokenLog{}
}

func (l *TokenLog) AppendIssuance(ctx context.Context, rec session.IssuanceRecord) error {
	if err := l.wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailIssuance != nil {
		return l.FailIssuance
	}
	l.issuances = append(l.issuances, rec)
	return nil
}

func (l *TokenLog) AppendRevocation(ctx context.Context, rec session.RevocationRecord) error {
	if err := l.wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailRevocation != nil {
		return l.FailRevocation
	}
	l.revocations = append(l.revocations, rec)
	return nil
}

// Issuances returns a copy of the issuance records.
func (l *TokenLog) Issuances() []session.IssuanceRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.IssuanceRecord(nil), l.issuances...)
}

// Revocations returns a copy of the revocation records.
func (l *TokenLog) Revocations() []session.RevocationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.RevocationRecord(nil), l.revocations...)
}

func (l *TokenLog) wait(ctx context.Context) error {
	if l.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(l.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
