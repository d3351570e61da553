// Package sqlite provides a SQLite-backed player-state store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/hoops/internal/adapters/playerstate/sqlite/migrations"
	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/progress"
)

const migrationTable = "schema_migrations"

// Store persists player fields in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
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

// Open opens a SQLite player-state store and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetFields implements progress.Store.
func (s *Store) GetFields(ctx context.Context, playerID string, keys []string) ([]progress.Field, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, playerID)
	for _, k := range keys {
		args = append(args, k)
	}
	query := `SELECT field_key, value, modified_at, write_lock
		FROM player_fields
		WHERE player_id = ? AND field_key IN (?` + strings.Repeat(", ?", len(keys)-1) + `)`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query player fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []progress.Field
	for rows.Next() {
		var (
			f        progress.Field
			modified int64
		)
		if err := rows.Scan(&f.Key, &f.Value, &modified, &f.WriteLock); err != nil {
			return nil, fmt.Errorf("scan player field: %w", err)
		}
		f.Modified = time.UnixMilli(modified).UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player fields: %w", err)
	}
	return out, nil
}

// SetFields implements progress.Store. Locked writes are conditional updates;
// any miss rolls back the whole batch.
func (s *Store) SetFields(ctx context.Context, playerID string, writes []progress.Write) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin player fields tx: %w", err)
	}
	modified := s.now().UTC().UnixMilli()

	for _, w := range writes {
		lock := uuid.NewString()
		if w.WriteLock != "" {
			res, err := tx.ExecContext(ctx,
				`UPDATE player_fields SET value = ?, modified_at = ?, write_lock = ?
				 WHERE player_id = ? AND field_key = ? AND write_lock = ?`,
				w.Value, modified, lock, playerID, w.Key, w.WriteLock,
			)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("update player field %s: %w", w.Key, err)
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				_ = tx.Rollback()
				return fmt.Errorf("%w: key %s", apperrors.ErrWriteConflict, w.Key)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_fields (player_id, field_key, value, modified_at, write_lock)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (player_id, field_key) DO UPDATE SET
			   value = excluded.value,
			   modified_at = excluded.modified_at,
			   write_lock = excluded.write_lock`,
			playerID, w.Key, w.Value, modified, lock,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert player field %s: %w", w.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit player fields: %w", err)
	}
	return nil
}

// applyMigrations executes embedded migrations at most once per file.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var found int
		err := sqlDB.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	if i := strings.Index(content, up); i >= 0 {
		content = content[i+len(up):]
	}
	if i := strings.Index(content, down); i >= 0 {
		content = content[:i]
	}
	return content
}
