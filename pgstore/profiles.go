package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrProfileExists is returned by [Profiles.Create] for a taken safe name.
var ErrProfileExists = errors.New("profile already exists")

const profileColumns = `id, name, safe_name, pw_bcrypt, token_priv`

// Profiles reads and writes the users table.
type Profiles struct {
	db poolIface
}

// NewProfiles returns a [session.ProfileStore] backed by db.
func NewProfiles(db poolIface) *Profiles {
	return &Profiles{db: db}
}

func (p *Profiles) ProfileByName(ctx context.Context, name string) (session.Profile, error) {
	row := p.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE safe_name = $1`, session.SafeName(name))
	return scanProfile(row)
}

func (p *Profiles) ProfileByID(ctx context.Context, userID int64) (session.Profile, error) {
	row := p.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, userID)
	return scanProfile(row)
}

func (p *Profiles) PasswordHash(ctx context.Context, userID int64) (string, error) {
	var hash string
	err := p.db.QueryRow(ctx, `SELECT pw_bcrypt FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		return "", mapReadError(err)
	}
	return hash, nil
}

func (p *Profiles) PrivilegeMask(ctx context.Context, userID int64) (privilege.Mask, error) {
	var raw int64
	err := p.db.QueryRow(ctx, `SELECT token_priv FROM users WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		return 0, mapReadError(err)
	}
	return privilege.Mask(raw), nil
}

// Create inserts a profile and returns it with its assigned id.
func (p *Profiles) Create(ctx context.Context, name, passwordHash string, privileges privilege.Mask) (session.Profile, error) {
	prof := session.Profile{
		Name:         name,
		SafeName:     session.SafeName(name),
		PasswordHash: passwordHash,
		Privileges:   privileges,
	}

	err := p.db.QueryRow(ctx,
		`INSERT INTO users (name, safe_name, pw_bcrypt, token_priv) VALUES ($1, $2, $3, $4) RETURNING id`,
		prof.Name, prof.SafeName, prof.PasswordHash, int64(privileges),
	).Scan(&prof.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return session.Profile{}, ErrProfileExists
		}
		return session.Profile{}, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return prof, nil
}

// UpdatePasswordHash replaces the stored hash of userID. Every token issued
// before the change stops validating.
func (p *Profiles) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	tag, err := p.db.Exec(ctx, `UPDATE users SET pw_bcrypt = $1 WHERE id = $2`, hash, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrProfileNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (session.Profile, error) {
	var (
		prof session.Profile
		raw  int64
	)
	if err := row.Scan(&prof.ID, &prof.Name, &prof.SafeName, &prof.PasswordHash, &raw); err != nil {
		return session.Profile{}, mapReadError(err)
	}
	prof.Privileges = privilege.Mask(raw)
	return prof, nil
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return session.ErrProfileNotFound
	}
	return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
}
