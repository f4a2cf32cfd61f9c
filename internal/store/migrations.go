package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS datasources (
	roadmap_id            TEXT PRIMARY KEY,
	id                    TEXT NOT NULL,
	kind                  TEXT NOT NULL DEFAULT 'external-tracker',
	config_json           TEXT NOT NULL DEFAULT '{}',
	encrypted_credential  TEXT NOT NULL DEFAULT '',
	tabular_text          TEXT NOT NULL DEFAULT '',
	snapshot_json         TEXT NOT NULL DEFAULT '',
	snapshot_captured_at  DATETIME,
	last_sync_at          DATETIME,
	last_sync_duration_ms INTEGER NOT NULL DEFAULT 0,
	last_sync_item_count  INTEGER NOT NULL DEFAULT 0,
	last_sync_error       TEXT NOT NULL DEFAULT '',
	updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_datasources_kind ON datasources(kind);
CREATE INDEX IF NOT EXISTS idx_datasources_last_sync ON datasources(last_sync_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
