// Package engine orchestrates datasource syncs: it decides between serving
// a cached snapshot and performing a live fetch, persists successful
// snapshots, and falls back to the last good snapshot when a live sync
// fails.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/secret"
	"github.com/openroadmap/roadmap/internal/source"
	"github.com/openroadmap/roadmap/internal/source/azdo"
	"github.com/openroadmap/roadmap/internal/store"
)

// defaultHTTPTimeout bounds tracker calls when no timeout is configured.
const defaultHTTPTimeout = 30 * time.Second

// ItemsResult is what a caller receives from GetItems: a usable item list,
// possibly stale, possibly truncated, possibly with a warning.
type ItemsResult struct {
	Items []model.RoadmapItem

	// Stale is set when the items come from a snapshot that could not
	// be refreshed.
	Stale bool

	// Truncated is set when the external query matched at least the
	// configured maximum number of records.
	Truncated bool

	// Warning is a human-readable note, set only on stale fallbacks.
	Warning string
}

// Status summarizes a roadmap's datasource health without exposing any
// credential material.
type Status struct {
	Kind               string
	HasSecret          bool
	SnapshotCapturedAt *time.Time
	model.SyncMeta
}

// TabularParser parses uploaded tabular text into roadmap items. The
// upload/download utility itself lives outside this engine; tabular
// roadmaps short-circuit through it with no caching involved.
type TabularParser interface {
	Parse(text string) ([]model.RoadmapItem, error)
}

// connectorFactory builds a connector for one sync. The decrypted token is
// handed to the connector and released when the sync returns.
type connectorFactory func(endpointURL, token string, timeout time.Duration) source.Connector

// Engine is the snapshot cache and staleness policy over one store. Safe
// for concurrent use; syncs for the same roadmap are serialized, syncs for
// different roadmaps run independently.
type Engine struct {
	store   store.Store
	cipher  secret.Cipher
	tabular TabularParser
	timeout time.Duration

	// Test seams. Production code never touches these.
	newConnector connectorFactory
	now          func() time.Time

	mu    gosync.Mutex
	locks map[string]*gosync.Mutex
}

// New creates an engine over the given store and credential cipher. The
// tabular parser may be nil when no tabular roadmaps exist.
func New(s store.Store, cipher secret.Cipher, tabular TabularParser, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Engine{
		store:   s,
		cipher:  cipher,
		tabular: tabular,
		timeout: timeout,
		newConnector: func(endpointURL, token string, timeout time.Duration) source.Connector {
			return azdo.New(endpointURL, token, timeout)
		},
		now:   time.Now,
		locks: make(map[string]*gosync.Mutex),
	}
}

// GetItems returns the roadmap's items, serving the cached snapshot while
// it is fresh and syncing otherwise. forceRefresh always attempts a live
// sync regardless of snapshot age.
func (e *Engine) GetItems(
	ctx context.Context,
	roadmapID string,
	forceRefresh bool,
) (*ItemsResult, error) {
	rec, err := e.store.GetDatasource(ctx, roadmapID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("roadmap %s: %w", roadmapID, source.ErrConfigIncomplete)
	}

	// Tabular roadmaps have no external staleness; parse and return.
	if rec.Kind == string(model.KindTabular) {
		if e.tabular == nil {
			return nil, errors.New("tabular roadmap configured but no parser available")
		}
		items, err := e.tabular.Parse(rec.TabularText)
		if err != nil {
			return nil, fmt.Errorf("parsing tabular data: %w", err)
		}
		return &ItemsResult{Items: items}, nil
	}

	unlock := e.lockRoadmap(roadmapID)
	defer unlock()

	// Re-read under the lock; a concurrent call may have just synced,
	// turning this call into a cache hit.
	rec, err = e.store.GetDatasource(ctx, roadmapID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("roadmap %s: %w", roadmapID, source.ErrConfigIncomplete)
	}

	cfg := decodeConfig(rec)

	if !forceRefresh && rec.HasSnapshot() {
		age := e.now().Sub(*rec.SnapshotCapturedAt)
		if age <= time.Duration(cfg.RefreshIntervalMinutes)*time.Minute {
			snap, decErr := decodeSnapshot(rec)
			if decErr == nil {
				return &ItemsResult{
					Items:     snap.Items,
					Truncated: snap.Truncated,
				}, nil
			}
			slog.Warn("stored snapshot unreadable, forcing sync",
				"roadmap", roadmapID, "error", decErr)
		}
	}

	return e.syncAndServe(ctx, roadmapID, rec, cfg)
}

// syncAndServe performs one live sync and applies the fallback policy on
// failure. MissingCredential deliberately does not fall back to an old
// snapshot: a connection without a credential was never operable, and
// silently serving arbitrarily old data after a credential was removed is
// worse than failing loudly.
func (e *Engine) syncAndServe(
	ctx context.Context,
	roadmapID string,
	rec *store.DatasourceRecord,
	cfg model.DatasourceConfig,
) (*ItemsResult, error) {
	if cfg.EndpointURL == "" || cfg.ProjectID == "" {
		return nil, source.ErrConfigIncomplete
	}
	if !rec.HasSecret() {
		return nil, source.ErrMissingCredential
	}

	token, err := e.cipher.Decrypt(rec.EncryptedCredential)
	if err != nil {
		return nil, fmt.Errorf("decrypting credential for roadmap %s: %w", roadmapID, err)
	}

	conn := e.newConnector(cfg.EndpointURL, token, e.timeout)

	start := e.now()
	result, err := conn.Sync(ctx, cfg)
	elapsed := e.now().Sub(start)

	if err != nil {
		return e.serveFallback(ctx, roadmapID, rec, err)
	}

	snap := model.Snapshot{
		Items:      result.Items,
		Truncated:  result.Truncated,
		CapturedAt: e.now(),
	}
	data, marshalErr := json.Marshal(snap)
	if marshalErr != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", marshalErr)
	}

	err = e.store.ReplaceSnapshot(
		ctx, roadmapID, string(data), snap.CapturedAt,
		elapsed.Milliseconds(), len(result.Items),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("sync complete",
		"roadmap", roadmapID,
		"items", len(result.Items),
		"truncated", result.Truncated,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &ItemsResult{Items: result.Items, Truncated: result.Truncated}, nil
}

// serveFallback records the failure and serves the previous snapshot when
// one exists, regardless of its age. With no snapshot the failure is the
// caller's.
func (e *Engine) serveFallback(
	ctx context.Context,
	roadmapID string,
	rec *store.DatasourceRecord,
	syncErr error,
) (*ItemsResult, error) {
	failedAt := e.now()
	if dbErr := e.store.RecordSyncFailure(ctx, roadmapID, failedAt, syncErr.Error()); dbErr != nil {
		slog.Error("recording sync failure", "roadmap", roadmapID, "error", dbErr)
	}

	if rec.HasSnapshot() {
		snap, decErr := decodeSnapshot(rec)
		if decErr == nil {
			warning := fmt.Sprintf(
				"live sync failed (%v); showing data captured %s",
				syncErr, rec.SnapshotCapturedAt.UTC().Format(time.RFC3339),
			)
			slog.Warn("serving stale snapshot after sync failure",
				"roadmap", roadmapID,
				"captured_at", rec.SnapshotCapturedAt,
				"error", syncErr,
			)
			return &ItemsResult{
				Items:     snap.Items,
				Stale:     true,
				Truncated: snap.Truncated,
				Warning:   warning,
			}, nil
		}
		slog.Error("stored snapshot unreadable during fallback",
			"roadmap", roadmapID, "error", decErr)
	}

	return nil, syncErr
}

// Status returns the datasource's sync health for a roadmap.
func (e *Engine) Status(ctx context.Context, roadmapID string) (*Status, error) {
	rec, err := e.store.GetDatasource(ctx, roadmapID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("roadmap %s: %w", roadmapID, source.ErrConfigIncomplete)
	}

	return &Status{
		Kind:               rec.Kind,
		HasSecret:          rec.HasSecret(),
		SnapshotCapturedAt: rec.SnapshotCapturedAt,
		SyncMeta:           rec.Meta(),
	}, nil
}

// lockRoadmap serializes syncs per roadmap. The returned func releases the
// lock.
func (e *Engine) lockRoadmap(roadmapID string) func() {
	e.mu.Lock()
	lock, ok := e.locks[roadmapID]
	if !ok {
		lock = &gosync.Mutex{}
		e.locks[roadmapID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// decodeConfig re-normalizes the stored configuration JSON. Going back
// through the normalizer keeps the well-typed-config invariant even if the
// stored JSON predates a schema change.
func decodeConfig(rec *store.DatasourceRecord) model.DatasourceConfig {
	var raw map[string]any
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &raw); err != nil {
		raw = nil
	}
	return model.NormalizeDatasourceConfig(raw)
}

func decodeSnapshot(rec *store.DatasourceRecord) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(rec.SnapshotJSON), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}
