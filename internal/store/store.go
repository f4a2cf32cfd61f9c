// Package store persists per-roadmap datasource records: the connection
// configuration, the encrypted credential, and the last good snapshot with
// its sync metadata.
package store

import (
	"context"
	"time"

	"github.com/openroadmap/roadmap/internal/model"
)

// DatasourceRecord is one roadmap's persisted datasource state. The
// snapshot columns are only ever replaced wholesale by a successful sync;
// a failed sync touches only the last_sync_* metadata.
type DatasourceRecord struct {
	// RoadmapID keys the record; one active datasource per roadmap.
	RoadmapID string `db:"roadmap_id"`

	// ID is the row's own identifier, assigned on first save.
	ID string `db:"id"`

	Kind       string `db:"kind"`
	ConfigJSON string `db:"config_json"`

	// EncryptedCredential is the ciphertext of the access token, empty
	// when no credential is stored. Existence is observable without
	// plaintext.
	EncryptedCredential string `db:"encrypted_credential"`

	// TabularText holds the uploaded tabular data for kind=tabular rows.
	TabularText string `db:"tabular_text"`

	SnapshotJSON       string     `db:"snapshot_json"`
	SnapshotCapturedAt *time.Time `db:"snapshot_captured_at"`

	LastSyncAt         *time.Time `db:"last_sync_at"`
	LastSyncDurationMs int64      `db:"last_sync_duration_ms"`
	LastSyncItemCount  int        `db:"last_sync_item_count"`
	LastSyncError      string     `db:"last_sync_error"`

	UpdatedAt time.Time `db:"updated_at"`
}

// HasSecret reports whether a credential is stored, without exposing it.
func (r *DatasourceRecord) HasSecret() bool {
	return r.EncryptedCredential != ""
}

// HasSnapshot reports whether a previously captured snapshot exists.
func (r *DatasourceRecord) HasSnapshot() bool {
	return r.SnapshotJSON != "" && r.SnapshotCapturedAt != nil
}

// Meta returns the record's sync metadata fields.
func (r *DatasourceRecord) Meta() model.SyncMeta {
	return model.SyncMeta{
		LastSyncAt:         r.LastSyncAt,
		LastSyncDurationMs: r.LastSyncDurationMs,
		LastSyncItemCount:  r.LastSyncItemCount,
		LastSyncError:      r.LastSyncError,
	}
}

// Store is the persistence contract for datasource records.
type Store interface {
	// GetDatasource returns the record for a roadmap, or nil when none
	// is configured.
	GetDatasource(ctx context.Context, roadmapID string) (*DatasourceRecord, error)

	// SaveDatasource upserts the configuration, credential, and tabular
	// columns and clears any existing snapshot: a snapshot captured
	// under an old configuration must never be served under a new one.
	SaveDatasource(ctx context.Context, rec *DatasourceRecord) error

	// ReplaceSnapshot atomically swaps in a new snapshot and the
	// success-side sync metadata.
	ReplaceSnapshot(
		ctx context.Context,
		roadmapID string,
		snapshotJSON string,
		capturedAt time.Time,
		durationMs int64,
		itemCount int,
	) error

	// RecordSyncFailure updates the failure-side sync metadata, leaving
	// the previous snapshot untouched.
	RecordSyncFailure(ctx context.Context, roadmapID string, at time.Time, message string) error
}
