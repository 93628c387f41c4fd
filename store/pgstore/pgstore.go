// Package pgstore is the Postgres UserStore. It speaks database/sql over
// the pgx stdlib driver and relies on the accounts table's unique email
// index for atomic duplicate rejection:
//
//	CREATE TABLE accounts (
//	    id                 UUID PRIMARY KEY,
//	    name               TEXT        NOT NULL,
//	    email              TEXT        NOT NULL UNIQUE,
//	    password_hash      TEXT,
//	    verified_at        TIMESTAMPTZ,
//	    two_factor_enabled BOOLEAN     NOT NULL DEFAULT FALSE,
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
//
// Schema migrations are owned by the host application.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/drithme/authcore"
)

const uniqueViolation = "23505"

// Store implements authcore.UserStore on Postgres.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects via the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

const accountColumns = "id, name, email, password_hash, verified_at, two_factor_enabled, created_at, updated_at"

// FindByEmail returns the account for email or authcore.ErrAccountNotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(s.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new account. A unique-index violation on email maps to
// authcore.ErrEmailAlreadyRegistered.
func (s *Store) Create(ctx context.Context, in authcore.CreateAccount) (*authcore.Account, error) {
	query := `INSERT INTO accounts (id, name, email, password_hash, two_factor_enabled, created_at, updated_at)
	          VALUES ($1, $2, $3, NULLIF($4, ''), FALSE, $5, $5)
	          RETURNING ` + accountColumns

	now := time.Now().UTC()
	acct, err := scanAccount(s.db.QueryRowContext(ctx, query, uuid.NewString(), in.Name, in.Email, in.PasswordHash, now))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, authcore.ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return acct, nil
}

// Update applies the non-nil fields. verified_at is guarded by COALESCE so
// a second redemption never moves the original verification time.
func (s *Store) Update(ctx context.Context, email string, upd authcore.AccountUpdate) (*authcore.Account, error) {
	query := `UPDATE accounts
	          SET verified_at        = CASE WHEN $2::timestamptz IS NULL THEN verified_at
	                                        ELSE COALESCE(verified_at, $2::timestamptz) END,
	              two_factor_enabled = COALESCE($3::boolean, two_factor_enabled),
	              updated_at         = $4
	          WHERE email = $1
	          RETURNING ` + accountColumns

	var verifiedAt sql.NullTime
	if upd.VerifiedAt != nil {
		verifiedAt = sql.NullTime{Time: upd.VerifiedAt.UTC(), Valid: true}
	}
	var twoFactor sql.NullBool
	if upd.TwoFactorEnabled != nil {
		twoFactor = sql.NullBool{Bool: *upd.TwoFactorEnabled, Valid: true}
	}

	return scanAccount(s.db.QueryRowContext(ctx, query, email, verifiedAt, twoFactor, time.Now().UTC()))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*authcore.Account, error) {
	var (
		acct       authcore.Account
		hash       sql.NullString
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&acct.ID, &acct.Name, &acct.Email, &hash,
		&verifiedAt, &acct.TwoFactorEnabled, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	acct.PasswordHash = hash.String
	if verifiedAt.Valid {
		at := verifiedAt.Time
		acct.VerifiedAt = &at
	}
	return &acct, nil
}
