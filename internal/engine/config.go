package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/source"
	"github.com/openroadmap/roadmap/internal/source/azdo"
	"github.com/openroadmap/roadmap/internal/store"
)

// SaveConfig normalizes and persists a datasource configuration for a
// roadmap. An empty credential keeps the previously stored one; a non-empty
// credential replaces it (encrypted). Saving always clears the snapshot, so
// the next read is forced through a sync under the new configuration.
func (e *Engine) SaveConfig(
	ctx context.Context,
	roadmapID string,
	raw map[string]any,
	credential string,
) (model.DatasourceConfig, error) {
	cfg := model.NormalizeDatasourceConfig(raw)

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("encoding configuration: %w", err)
	}

	existing, err := e.store.GetDatasource(ctx, roadmapID)
	if err != nil {
		return cfg, err
	}

	rec := &store.DatasourceRecord{
		RoadmapID:  roadmapID,
		Kind:       string(cfg.Kind),
		ConfigJSON: string(cfgJSON),
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.EncryptedCredential = existing.EncryptedCredential
		rec.TabularText = existing.TabularText
	}

	if credential != "" {
		encrypted, err := e.cipher.Encrypt(credential)
		if err != nil {
			return cfg, fmt.Errorf("encrypting credential: %w", err)
		}
		rec.EncryptedCredential = encrypted
	}

	if err := e.store.SaveDatasource(ctx, rec); err != nil {
		return cfg, err
	}

	slog.Info("datasource configuration saved",
		"roadmap", roadmapID,
		"kind", cfg.Kind,
		"has_secret", rec.EncryptedCredential != "",
	)
	return cfg, nil
}

// SaveTabular stores uploaded tabular text as the roadmap's datasource.
func (e *Engine) SaveTabular(ctx context.Context, roadmapID, text string) error {
	existing, err := e.store.GetDatasource(ctx, roadmapID)
	if err != nil {
		return err
	}

	cfgJSON, err := json.Marshal(model.DatasourceConfig{Kind: model.KindTabular})
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	rec := &store.DatasourceRecord{
		RoadmapID:   roadmapID,
		Kind:        string(model.KindTabular),
		ConfigJSON:  string(cfgJSON),
		TabularText: text,
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.EncryptedCredential = existing.EncryptedCredential
	}

	return e.store.SaveDatasource(ctx, rec)
}

// ValidateConfig dry-runs a configuration against the tracker with the
// given plaintext token: it executes the id lookup and one small batch
// read, returning non-fatal warnings. No snapshot is written and nothing is
// persisted.
func (e *Engine) ValidateConfig(
	ctx context.Context,
	raw map[string]any,
	token string,
) ([]string, error) {
	cfg := model.NormalizeDatasourceConfig(raw)
	if cfg.EndpointURL == "" || cfg.ProjectID == "" {
		return nil, source.ErrConfigIncomplete
	}
	if token == "" {
		return nil, source.ErrMissingCredential
	}

	conn := e.newConnector(cfg.EndpointURL, token, e.timeout)
	return conn.Validate(ctx, cfg)
}

// ListProjects returns the projects visible at an endpoint, for the
// configuration flow.
func (e *Engine) ListProjects(
	ctx context.Context,
	endpointURL string,
	token string,
) ([]source.Project, error) {
	if endpointURL == "" {
		return nil, source.ErrConfigIncomplete
	}
	if token == "" {
		return nil, source.ErrMissingCredential
	}
	return azdo.New(endpointURL, token, e.timeout).ListProjects(ctx)
}

// ResolveFromRecordURL parses a tracker UI URL into endpoint, project, and
// record id; with a token it also resolves the record's type and area path.
func (e *Engine) ResolveFromRecordURL(
	ctx context.Context,
	rawURL string,
	token string,
) (*source.ResolvedRecord, error) {
	return azdo.ResolveRecordURL(ctx, rawURL, token, e.timeout)
}

// GetComments fetches the discussion thread for one record using the
// roadmap's stored configuration and credential.
func (e *Engine) GetComments(
	ctx context.Context,
	roadmapID string,
	recordID int,
) ([]source.Comment, error) {
	conn, cfg, err := e.connectorForRoadmap(ctx, roadmapID)
	if err != nil {
		return nil, err
	}
	return conn.Comments(ctx, cfg.ProjectID, recordID)
}

// GetRelations fetches the links attached to one record using the
// roadmap's stored configuration and credential.
func (e *Engine) GetRelations(
	ctx context.Context,
	roadmapID string,
	recordID int,
) ([]source.Relation, error) {
	conn, cfg, err := e.connectorForRoadmap(ctx, roadmapID)
	if err != nil {
		return nil, err
	}
	return conn.Relations(ctx, cfg.ProjectID, recordID)
}

// connectorForRoadmap builds a tracker connector from a roadmap's stored
// configuration and decrypted credential.
func (e *Engine) connectorForRoadmap(
	ctx context.Context,
	roadmapID string,
) (*azdo.Connector, model.DatasourceConfig, error) {
	var cfg model.DatasourceConfig

	rec, err := e.store.GetDatasource(ctx, roadmapID)
	if err != nil {
		return nil, cfg, err
	}
	if rec == nil {
		return nil, cfg, fmt.Errorf("roadmap %s: %w", roadmapID, source.ErrConfigIncomplete)
	}

	cfg = decodeConfig(rec)
	if cfg.EndpointURL == "" || cfg.ProjectID == "" {
		return nil, cfg, source.ErrConfigIncomplete
	}
	if !rec.HasSecret() {
		return nil, cfg, source.ErrMissingCredential
	}

	token, err := e.cipher.Decrypt(rec.EncryptedCredential)
	if err != nil {
		return nil, cfg, fmt.Errorf("decrypting credential for roadmap %s: %w", roadmapID, err)
	}

	return azdo.New(cfg.EndpointURL, token, e.timeout), cfg, nil
}
