package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "remitpool/pkg/domain"
	"remitpool/pkg/platform/sentinel"
)

// PostgresStore persists registrations in PostgreSQL. The bijection is
// enforced by the schema: hash is the primary key and account carries a
// unique constraint, so a violated mapping surfaces as a unique violation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Schema is the DDL the store expects. Applied by deployment tooling; exposed
// here so integration tests can create the table themselves.
const Schema = `
CREATE TABLE IF NOT EXISTS identifier_registrations (
	hash    TEXT PRIMARY KEY,
	account TEXT NOT NULL UNIQUE
)`

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Resolve(ctx context.Context, hash id.IdentifierHash) (id.AccountID, error) {
	var account string
	err := s.pool.QueryRow(ctx,
		`SELECT account FROM identifier_registrations WHERE hash = $1`, hash.String(),
	).Scan(&account)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve hash: %w", err)
	}
	return id.AccountID(account), nil
}

func (s *PostgresStore) ReverseLookup(ctx context.Context, account id.AccountID) (id.IdentifierHash, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT hash FROM identifier_registrations WHERE account = $1`, account.String(),
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reverse lookup: %w", err)
	}
	return id.IdentifierHash(hash), nil
}

func (s *PostgresStore) Register(ctx context.Context, hash id.IdentifierHash, account id.AccountID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO identifier_registrations (hash, account) VALUES ($1, $2)`,
		hash.String(), account.String(),
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("register hash: %w", err)
	}
	return nil
}

func (s *PostgresStore) Unregister(ctx context.Context, hash id.IdentifierHash) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM identifier_registrations WHERE hash = $1`, hash.String(),
	)
	if err != nil {
		return fmt.Errorf("unregister hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Repoint(ctx context.Context, hash id.IdentifierHash, account id.AccountID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE identifier_registrations SET account = $2 WHERE hash = $1`,
		hash.String(), account.String(),
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("repoint hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
