package approval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Each operation is a single statement, so per-id linearizability comes from the
// row-level locking of INSERT ... ON CONFLICT DO UPDATE.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "sendwave").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("approval: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("approval: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "sendwave",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("approval: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Migrate creates the schema and sessions table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{s.schema}.Sanitize()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+s.table()+` (
  id         TEXT PRIMARY KEY CHECK (char_length(id) BETWEEN 1 AND 128),
  state      TEXT NOT NULL CHECK (state IN ('pending', 'approved', 'wrong_pin', 'wrong_code', 'continue')),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

// Put upserts the state for id.
func (s *PostgresStore) Put(ctx context.Context, id string, state State) error {
	if err := validatePut(id, state); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table()+` (id, state, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE
		    SET state = EXCLUDED.state,
		        updated_at = now()`,
		id, string(state),
	)
	if err != nil {
		return fmt.Errorf("postgres put: %w", err)
	}
	return nil
}

// Get returns the state for id, or StatePending when absent.
func (s *PostgresStore) Get(ctx context.Context, id string) (State, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	var raw string
	err := s.pool.QueryRow(ctx, `SELECT state FROM `+s.table()+` WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatePending, nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres get: %w", err)
	}
	return ParseState(raw)
}

// Delete removes id if present.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) table() string {
	return pgIdent(s.schema, "approval_sessions")
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
