package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recordColumns = "idempotency_key, manifest_id, status, owner_token, job_reference, output_prefix, outcome_reason, created_at, updated_at, expires_at"

// GetByKey fetches a reservation record by idempotency key.
func (s *Store) GetByKey(ctx context.Context, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM reservations WHERE idempotency_key = ?`, key)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// ByManifest returns all records for one manifest, newest first. Used for the
// operational "all jobs for this content" query, not for correctness.
func (s *Store) ByManifest(ctx context.Context, manifestID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM reservations WHERE manifest_id = ? ORDER BY created_at DESC`,
		manifestID,
	)
	if err != nil {
		return nil, fmt.Errorf("query by manifest: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ByStatus returns records matching a status ordered by creation time.
func (s *Store) ByStatus(ctx context.Context, status Status) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM reservations WHERE status = ? ORDER BY created_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ByJobReference returns the record holding an external job reference.
func (s *Store) ByJobReference(ctx context.Context, jobReference string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM reservations WHERE job_reference = ? LIMIT 1`,
		jobReference,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by job reference: %w", err)
	}
	return record, nil
}

// List returns all records ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM reservations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (StatsSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM reservations GROUP BY status`)
	if err != nil {
		return StatsSummary{}, fmt.Errorf("reservation stats: %w", err)
	}
	defer rows.Close()

	summary := StatsSummary{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatsSummary{}, err
		}
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending += count
		case StatusSubmitted:
			summary.Submitted += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		key           string
		manifestID    string
		statusStr     string
		ownerToken    string
		jobReference  sql.NullString
		outputPrefix  sql.NullString
		outcomeReason sql.NullString
		createdRaw    string
		updatedRaw    string
		expiresRaw    string
	)

	if err := scanner.Scan(
		&key,
		&manifestID,
		&statusStr,
		&ownerToken,
		&jobReference,
		&outputPrefix,
		&outcomeReason,
		&createdRaw,
		&updatedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		IdempotencyKey: key,
		ManifestID:     manifestID,
		Status:         Status(statusStr),
		OwnerToken:     ownerToken,
		JobReference:   jobReference.String,
		OutputPrefix:   outputPrefix.String,
		OutcomeReason:  outcomeReason.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	if expires, err := parseTimeString(expiresRaw); err == nil {
		record.ExpiresAt = expires
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
