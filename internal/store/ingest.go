package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// ShouldProcess reports whether the (batchName, artifactKind) unit still
// needs work. A success entry is terminal; a processing entry is treated as
// already in flight. A failed entry (or none) means the unit should run.
func (s *Store) ShouldProcess(ctx context.Context, batchName, artifactKind string) (bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM ingest_log WHERE batch_name = ? AND artifact_kind = ?`,
		batchName, artifactKind).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading ingest log: %w", err)
	}

	switch status {
	case model.IngestStatusSuccess, model.IngestStatusProcessing:
		return false, nil
	default:
		return true, nil
	}
}

// MarkProcessing upserts the unit to processing before any work starts.
func (s *Store) MarkProcessing(ctx context.Context, batchName, artifactKind, sourceDir string) error {
	now := model.NowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_log (batch_name, artifact_kind, status, source_dir, error, items_created, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, ?)
		ON CONFLICT(batch_name, artifact_kind) DO UPDATE SET
			status = excluded.status, source_dir = excluded.source_dir,
			error = NULL, items_created = NULL, updated_at = excluded.updated_at`,
		batchName, artifactKind, model.IngestStatusProcessing, sourceDir, now, now)
	if err != nil {
		return fmt.Errorf("marking batch processing: %w", err)
	}
	return nil
}

// MarkSuccess records the terminal success state with the item count.
func (s *Store) MarkSuccess(ctx context.Context, batchName, artifactKind string, itemsCreated int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_log SET status = ?, items_created = ?, error = NULL, updated_at = ?
		WHERE batch_name = ? AND artifact_kind = ?`,
		model.IngestStatusSuccess, itemsCreated, model.NowRFC3339(), batchName, artifactKind)
	if err != nil {
		return fmt.Errorf("marking batch success: %w", err)
	}
	return nil
}

// MarkFailed records the failure with the captured error message. The
// source directory is left untouched so the batch can be retried from
// scratch.
func (s *Store) MarkFailed(ctx context.Context, batchName, artifactKind, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_log SET status = ?, error = ?, updated_at = ?
		WHERE batch_name = ? AND artifact_kind = ?`,
		model.IngestStatusFailed, errMsg, model.NowRFC3339(), batchName, artifactKind)
	if err != nil {
		return fmt.Errorf("marking batch failed: %w", err)
	}
	return nil
}

// GetIngestEntry returns the log entry for a unit, or ErrNotFound.
func (s *Store) GetIngestEntry(ctx context.Context, batchName, artifactKind string) (*model.IngestionLogEntry, error) {
	var e model.IngestionLogEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_name, artifact_kind, status, source_dir, error, items_created, created_at, updated_at
		FROM ingest_log WHERE batch_name = ? AND artifact_kind = ?`,
		batchName, artifactKind).
		Scan(&e.BatchName, &e.ArtifactKind, &e.Status, &e.SourceDir, &e.Error, &e.ItemsCreated, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingest entry (%s, %s): %w", batchName, artifactKind, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting ingest entry: %w", err)
	}
	return &e, nil
}

// ResetStaleProcessing marks any processing entries as failed (for server
// restart). Without a distributed lock a crash mid-batch would otherwise
// leave the key wedged as in-flight forever.
func (s *Store) ResetStaleProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingest_log SET status = ?, error = ?, updated_at = ?
		WHERE status = ?`,
		model.IngestStatusFailed, "interrupted by restart", model.NowRFC3339(), model.IngestStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("resetting stale processing: %w", err)
	}
	return res.RowsAffected()
}
