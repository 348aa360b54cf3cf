package reservation

import (
	"context"
	"fmt"
	"time"
)

// ReapStale removes pending records older than maxAge, making their keys
// reservable again by a new caller. A reaped reservation is treated as
// abandoned, never as processed; whatever work its owner started must
// re-admit itself through Reserve.
//
// Submitted records are deliberately untouched: an in-flight external encode
// may still finish and is reconciled separately.
func (s *Store) ReapStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM reservations WHERE status = ? AND updated_at < ?`,
		StatusPending,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reap stale reservations: %w", err)
	}
	return res.RowsAffected()
}

// PurgeExpired deletes terminal records whose TTL has lapsed. This is routine
// garbage collection; purged keys become re-encodable, which is acceptable
// because the TTL is chosen well past any plausible duplicate-trigger window.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM reservations WHERE expires_at < ? AND status IN (?, ?)`,
		now,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired reservations: %w", err)
	}
	return res.RowsAffected()
}

// StaleSubmitted returns submitted records that have not been touched since
// the cutoff. The reconciliation sweep queries the encoder for each of these
// by job reference instead of assuming a timed-out wait means failure.
func (s *Store) StaleSubmitted(ctx context.Context, cutoff time.Time) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM reservations WHERE status = ? AND updated_at < ? ORDER BY updated_at`,
		StatusSubmitted,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale submitted: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}
