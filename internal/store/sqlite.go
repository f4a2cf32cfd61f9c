package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetDatasource returns the datasource record for a roadmap, or nil when
// the roadmap has none.
func (s *SQLiteStore) GetDatasource(
	ctx context.Context,
	roadmapID string,
) (*DatasourceRecord, error) {
	var rec DatasourceRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM datasources WHERE roadmap_id = ?", roadmapID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading datasource for roadmap %s: %w", roadmapID, err)
	}
	return &rec, nil
}

// SaveDatasource upserts the configuration columns and clears the snapshot,
// so the first read under the new configuration is forced through a sync.
func (s *SQLiteStore) SaveDatasource(ctx context.Context, rec *DatasourceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UpdatedAt = time.Now().UTC()

	const query = `
		INSERT INTO datasources (
			roadmap_id, id, kind, config_json,
			encrypted_credential, tabular_text,
			snapshot_json, snapshot_captured_at,
			last_sync_at, last_sync_duration_ms,
			last_sync_item_count, last_sync_error,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, '', NULL, NULL, 0, 0, '', ?)
		ON CONFLICT(roadmap_id) DO UPDATE SET
			kind = excluded.kind,
			config_json = excluded.config_json,
			encrypted_credential = excluded.encrypted_credential,
			tabular_text = excluded.tabular_text,
			snapshot_json = '',
			snapshot_captured_at = NULL,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.RoadmapID, rec.ID, rec.Kind, rec.ConfigJSON,
		rec.EncryptedCredential, rec.TabularText,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving datasource for roadmap %s: %w", rec.RoadmapID, err)
	}
	return nil
}

// ReplaceSnapshot swaps in a new snapshot and the success-side sync
// metadata in one statement, so readers never observe a half-written state.
func (s *SQLiteStore) ReplaceSnapshot(
	ctx context.Context,
	roadmapID string,
	snapshotJSON string,
	capturedAt time.Time,
	durationMs int64,
	itemCount int,
) error {
	const query = `
		UPDATE datasources SET
			snapshot_json = ?,
			snapshot_captured_at = ?,
			last_sync_at = ?,
			last_sync_duration_ms = ?,
			last_sync_item_count = ?,
			last_sync_error = '',
			updated_at = ?
		WHERE roadmap_id = ?`

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, query,
		snapshotJSON, capturedAt.UTC(), capturedAt.UTC(),
		durationMs, itemCount, now, roadmapID,
	)
	if err != nil {
		return fmt.Errorf("replacing snapshot for roadmap %s: %w", roadmapID, err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("no datasource configured for roadmap %s", roadmapID)
	}
	return nil
}

// RecordSyncFailure stores the failure-side metadata. The previous snapshot
// columns are deliberately not touched.
func (s *SQLiteStore) RecordSyncFailure(
	ctx context.Context,
	roadmapID string,
	at time.Time,
	message string,
) error {
	const query = `
		UPDATE datasources SET
			last_sync_at = ?,
			last_sync_error = ?,
			updated_at = ?
		WHERE roadmap_id = ?`

	_, err := s.db.ExecContext(ctx, query,
		at.UTC(), message, time.Now().UTC(), roadmapID,
	)
	if err != nil {
		return fmt.Errorf("recording sync failure for roadmap %s: %w", roadmapID, err)
	}
	return nil
}
