// Package postgres provides a PostgreSQL-backed player-state store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/progress"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_fields (
	player_id VARCHAR(100) NOT NULL,
	field_key VARCHAR(64) NOT NULL,
	value BIGINT NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL,
	write_lock VARCHAR(64) NOT NULL,
	PRIMARY KEY (player_id, field_key)
)`

// serializationFailure is the SQLSTATE for a transaction that lost a race.
const serializationFailure = "40001"

// Store persists player fields in PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp modifications.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an open database handle. The schema must exist.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetFields implements progress.Store.
func (s *Store) GetFields(ctx context.Context, playerID string, keys []string) ([]progress.Field, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_key, value, modified_at, write_lock
		 FROM player_fields
		 WHERE player_id = $1 AND field_key = ANY($2)`,
		playerID, pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("query player fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []progress.Field
	for rows.Next() {
		var f progress.Field
		if err := rows.Scan(&f.Key, &f.Value, &f.Modified, &f.WriteLock); err != nil {
			return nil, fmt.Errorf("scan player field: %w", err)
		}
		f.Modified = f.Modified.UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player fields: %w", err)
	}
	return out, nil
}

// SetFields implements progress.Store.
func (s *Store) SetFields(ctx context.Context, playerID string, writes []progress.Write) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin player fields tx: %w", err)
	}
	modified := s.now().UTC()

	for _, w := range writes {
		lock := uuid.NewString()
		if w.WriteLock != "" {
			res, err := tx.ExecContext(ctx,
				`UPDATE player_fields SET value = $1, modified_at = $2, write_lock = $3
				 WHERE player_id = $4 AND field_key = $5 AND write_lock = $6`,
				w.Value, modified, lock, playerID, w.Key, w.WriteLock,
			)
			if err != nil {
				_ = tx.Rollback()
				return classify(fmt.Errorf("update player field %s: %w", w.Key, err), w.Key)
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				_ = tx.Rollback()
				return fmt.Errorf("%w: key %s", apperrors.ErrWriteConflict, w.Key)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_fields (player_id, field_key, value, modified_at, write_lock)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (player_id, field_key) DO UPDATE SET
			   value = EXCLUDED.value,
			   modified_at = EXCLUDED.modified_at,
			   write_lock = EXCLUDED.write_lock`,
			playerID, w.Key, w.Value, modified, lock,
		); err != nil {
			_ = tx.Rollback()
			return classify(fmt.Errorf("upsert player field %s: %w", w.Key, err), w.Key)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit player fields: %w", err), "")
	}
	return nil
}

// classify maps serialization failures to write conflicts.
func classify(err error, key string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == serializationFailure {
		return fmt.Errorf("%w: key %s: %v", apperrors.ErrWriteConflict, key, err)
	}
	return err
}
