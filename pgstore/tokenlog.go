package pgstore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/session"
)

// TokenLog appends issuance and revocation rows.
type TokenLog struct {
	db poolIface
}

// NewTokenLog returns a [session.TokenLog] backed by db.
func NewTokenLog(db poolIface) *TokenLog {
	return &TokenLog{db: db}
}

func (l *TokenLog) AppendIssuance(ctx context.Context, rec session.IssuanceRecord) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO token_issuances (user_id, fingerprint, client_agent, client_address, issued_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.UserID, rec.Fingerprint, rec.ClientAgent, rec.ClientAddress, rec.IssuedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

func (l *TokenLog) AppendRevocation(ctx context.Context, rec session.RevocationRecord) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO token_revocations (user_id, fingerprint, revoked_at, reason) VALUES ($1, $2, $3, $4)`,
		rec.UserID, rec.Fingerprint, rec.RevokedAt, rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

// IssuancesForUser returns up to limit issuance rows of userID, newest first.
func (l *TokenLog) IssuancesForUser(ctx context.Context, userID int64, limit int) ([]session.IssuanceRecord, error) {
	rows, err := l.db.Query(ctx,
		`SELECT user_id, fingerprint, client_agent, client_address, issued_at, expires_at FROM token_issuances WHERE user_id = $1 ORDER BY issued_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	defer rows.Close()

	var out []session.IssuanceRecord
	for rows.Next() {
		var rec session.IssuanceRecord
		if err := rows.Scan(&rec.UserID, &rec.Fingerprint, &rec.ClientAgent, &rec.ClientAddress, &rec.IssuedAt, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return out, nil
}
