package reservation

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mezzpress/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages reservation persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the reservation database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "reservations.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the backing database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// Reserve attempts an atomic create-if-absent write of a pending record.
// Among any number of callers racing on the same key, exactly one acquires
// the slot; the rest observe the existing record and its current status.
//
// Reserve is the sole admission control point. It is a single conditional
// insert rather than a read-then-write, which would be open to the classic
// check-then-act race between concurrent triggers for the same content.
func (s *Store) Reserve(ctx context.Context, key, manifestID, outputPrefix, ownerToken string, ttl time.Duration) (ReserveResult, error) {
	if key == "" {
		return ReserveResult{}, errors.New("idempotency key is required")
	}
	if ownerToken == "" {
		return ReserveResult{}, errors.New("owner token is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	expiry := now.Add(ttl).Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO reservations (
            idempotency_key, manifest_id, status, owner_token, output_prefix,
            created_at, updated_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(idempotency_key) DO NOTHING`,
		key,
		manifestID,
		StatusPending,
		ownerToken,
		nullableString(outputPrefix),
		timestamp,
		timestamp,
		expiry,
	)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("reserve slot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ReserveResult{}, fmt.Errorf("reserve rows affected: %w", err)
	}
	if affected == 1 {
		return ReserveResult{Acquired: true}, nil
	}

	existing, err := s.GetByKey(ctx, key)
	if err != nil {
		return ReserveResult{}, err
	}
	// The blocking record can vanish between the insert and the read if a
	// reap lands in the gap; treat that as losing the race and let the
	// caller's retry path re-reserve.
	return ReserveResult{Acquired: false, Existing: existing}, nil
}

// Confirm transitions pending -> submitted and attaches the external job
// reference, conditioned on the record still being pending and owned by this
// caller. Any other shape means the reservation was reaped or taken over, and
// the caller must abort rather than double-submit.
func (s *Store) Confirm(ctx context.Context, key, ownerToken, jobReference string) error {
	if jobReference == "" {
		return errors.New("job reference is required")
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE reservations
         SET status = ?, job_reference = ?, updated_at = ?
         WHERE idempotency_key = ? AND status = ? AND owner_token = ?`,
		StatusSubmitted,
		jobReference,
		time.Now().UTC().Format(time.RFC3339Nano),
		key,
		StatusPending,
		ownerToken,
	)
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record for key %s is not pending under this owner", ErrStaleReservation, shortKey(key))
	}
	return nil
}

// Complete transitions submitted -> {completed|failed}. It is idempotent:
// repeating the same outcome is a no-op, while a different outcome than the
// one already stored is ErrConflictingOutcome, since terminal states must not
// regress.
func (s *Store) Complete(ctx context.Context, key string, outcome Outcome, reason string) error {
	target := outcome.status()

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE reservations
         SET status = ?, outcome_reason = ?, updated_at = ?
         WHERE idempotency_key = ? AND status = ?`,
		target,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		key,
		StatusSubmitted,
	)
	if err != nil {
		return fmt.Errorf("complete reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	record, err := s.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record for key %s no longer exists", ErrStaleReservation, shortKey(key))
	}
	if record.Status == target {
		return nil
	}
	if record.Status.IsTerminal() {
		return fmt.Errorf("%w: record for key %s already %s, refusing %s", ErrConflictingOutcome, shortKey(key), record.Status, target)
	}
	return fmt.Errorf("%w: record for key %s is %s, not submitted", ErrStaleReservation, shortKey(key), record.Status)
}

func shortKey(key string) string {
	if len(key) <= 16 {
		return key
	}
	return key[:16]
}
