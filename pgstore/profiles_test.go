package pgstore

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileCols = []string{"id", "name", "safe_name", "pw_bcrypt", "token_priv"}

func TestProfiles_ProfileByName(t *testing.T) {
	tests := []struct {
		name      string
		lookup    string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      session.Profile
		wantErr   error
	}{
		{
			name:   "found by safe name",
			lookup: "Cool Player",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, name, safe_name, pw_bcrypt, token_priv FROM users WHERE safe_name`).
					WithArgs("cool_player").
					WillReturnRows(pgxmock.NewRows(profileCols).AddRow(int64(3), "Cool Player", "cool_player", "$2a$hash", int64(5)))
			},
			want: session.Profile{ID: 3, Name: "Cool Player", SafeName: "cool_player", PasswordHash: "$2a$hash", Privileges: privilege.Login | privilege.PostContent},
		},
		{
			name:   "unknown user",
			lookup: "ghost",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE safe_name`).
					WithArgs("ghost").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: session.ErrProfileNotFound,
		},
		{
			name:   "database error",
			lookup: "alice",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE safe_name`).
					WithArgs("alice").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: ErrDatabaseUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewProfiles(mock).ProfileByName(context.Background(), tt.lookup)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestProfiles_PasswordHashAndMask(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT pw_bcrypt FROM users WHERE id`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"pw_bcrypt"}).AddRow("H1"))
	mock.ExpectQuery(`SELECT token_priv FROM users WHERE id`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"token_priv"}).AddRow(int64(1 << 11)))
	mock.ExpectQuery(`SELECT pw_bcrypt FROM users WHERE id`).
		WithArgs(int64(10)).
		WillReturnError(pgx.ErrNoRows)

	repo := NewProfiles(mock)
	ctx := context.Background()

	hash, err := repo.PasswordHash(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "H1", hash)

	mask, err := repo.PrivilegeMask(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, privilege.EditUsers, mask)

	_, err = repo.PasswordHash(ctx, 10)
	assert.ErrorIs(t, err, session.ErrProfileNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfiles_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantID    int64
		wantErr   error
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Alice B", "alice_b", "$2a$hash", int64(1)).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
			},
			wantID: 42,
		},
		{
			name: "duplicate safe name",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Alice B", "alice_b", "$2a$hash", int64(1)).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: ErrProfileExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			prof, err := NewProfiles(mock).Create(context.Background(), "Alice B", "$2a$hash", privilege.Login)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, prof.ID)
				assert.Equal(t, "alice_b", prof.SafeName)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfiles_UpdatePasswordHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE users SET pw_bcrypt`).
		WithArgs("H2", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET pw_bcrypt`).
		WithArgs("H2", int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewProfiles(mock)
	require.NoError(t, repo.UpdatePasswordHash(context.Background(), 1, "H2"))
	assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), 2, "H2"), session.ErrProfileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
