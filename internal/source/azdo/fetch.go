package azdo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/source"
)

// batchChunkSize is the tracker's per-call limit for batch reads.
const batchChunkSize = 200

// validateSampleSize bounds the dry-run record sample.
const validateSampleSize = 10

// Connector implements source.Connector against one tracker endpoint with
// one credential. Construct a fresh Connector per sync; the decrypted token
// lives only inside its client.
type Connector struct {
	client *Client
}

// New creates a connector for the given organization endpoint and access
// token.
func New(endpointURL, token string, timeout time.Duration) *Connector {
	return &Connector{client: NewClient(endpointURL, token, timeout)}
}

// Sync fetches every record the configuration selects and maps it into the
// canonical item shape. Any API failure aborts the whole sync; completed
// chunks are discarded so a partial snapshot can never be written.
func (c *Connector) Sync(
	ctx context.Context,
	cfg model.DatasourceConfig,
) (*source.SyncResult, error) {
	records, truncated, err := c.fetchAll(ctx, cfg)
	if err != nil {
		return nil, err
	}

	items := make([]model.RoadmapItem, 0, len(records))
	for _, rec := range records {
		if item, ok := MapRecord(rec, cfg); ok {
			items = append(items, item)
		}
	}

	slog.Debug("sync mapped records",
		"fetched", len(records),
		"mapped", len(items),
		"truncated", truncated,
	)

	return &source.SyncResult{Items: items, Truncated: truncated}, nil
}

// fetchAll runs the id-lookup query, truncates at the configured maximum,
// and retrieves full records in bounded chunks, preserving the original id
// order.
func (c *Connector) fetchAll(
	ctx context.Context,
	cfg model.DatasourceConfig,
) ([]WorkItem, bool, error) {
	if cfg.EndpointURL == "" || cfg.ProjectID == "" {
		return nil, false, source.ErrConfigIncomplete
	}

	query, err := BuildQuery(ctx, cfg, c.client)
	if err != nil {
		return nil, false, err
	}

	var wiqlResp WiqlResponse
	err = c.client.Post(
		ctx, "query",
		fmt.Sprintf("/%s/_apis/wit/wiql", url.PathEscape(cfg.ProjectID)),
		wiqlRequest{Query: query},
		&wiqlResp,
	)
	if err != nil {
		return nil, false, err
	}

	ids := make([]int, 0, len(wiqlResp.WorkItems))
	for _, ref := range wiqlResp.WorkItems {
		ids = append(ids, ref.ID)
	}

	truncated := len(ids) >= cfg.MaxItems
	if len(ids) > cfg.MaxItems {
		ids = ids[:cfg.MaxItems]
	}
	if len(ids) == 0 {
		return nil, truncated, nil
	}

	records, err := c.readBatches(ctx, cfg, ids)
	if err != nil {
		return nil, false, err
	}
	return records, truncated, nil
}

// readBatches retrieves full records for ids in chunks, requesting exactly
// the fields the mapper needs, and reorders the result by the original id
// sequence so output never depends on response ordering.
func (c *Connector) readBatches(
	ctx context.Context,
	cfg model.DatasourceConfig,
	ids []int,
) ([]WorkItem, error) {
	fields := fetchFields(cfg)
	path := fmt.Sprintf("/%s/_apis/wit/workitemsbatch", url.PathEscape(cfg.ProjectID))

	byID := make(map[int]WorkItem, len(ids))
	for start := 0; start < len(ids); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		var batchResp BatchResponse
		err := c.client.Post(ctx, "batch read", path, batchRequest{
			IDs:    ids[start:end],
			Fields: fields,
		}, &batchResp)
		if err != nil {
			return nil, err
		}

		for _, rec := range batchResp.Value {
			byID[rec.ID] = rec
		}
	}

	records := make([]WorkItem, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Validate dry-runs the configuration: it executes the id lookup and one
// batch read over a small sample, then reports configured external field
// names the sample never carried and canonical fields that produced no
// value. Nothing is persisted.
func (c *Connector) Validate(
	ctx context.Context,
	cfg model.DatasourceConfig,
) ([]string, error) {
	if cfg.EndpointURL == "" || cfg.ProjectID == "" {
		return nil, source.ErrConfigIncomplete
	}

	query, err := BuildQuery(ctx, cfg, c.client)
	if err != nil {
		return nil, err
	}

	var wiqlResp WiqlResponse
	err = c.client.Post(
		ctx, "query",
		fmt.Sprintf("/%s/_apis/wit/wiql", url.PathEscape(cfg.ProjectID)),
		wiqlRequest{Query: query},
		&wiqlResp,
	)
	if err != nil {
		return nil, err
	}

	if len(wiqlResp.WorkItems) == 0 {
		return []string{"query matched no records"}, nil
	}

	ids := make([]int, 0, validateSampleSize)
	for _, ref := range wiqlResp.WorkItems {
		ids = append(ids, ref.ID)
		if len(ids) == validateSampleSize {
			break
		}
	}

	var batchResp BatchResponse
	err = c.client.Post(
		ctx, "batch read",
		fmt.Sprintf("/%s/_apis/wit/workitemsbatch", url.PathEscape(cfg.ProjectID)),
		batchRequest{IDs: ids, Fields: fetchFields(cfg)},
		&batchResp,
	)
	if err != nil {
		return nil, err
	}

	return sampleWarnings(cfg, batchResp.Value), nil
}

// sampleWarnings inspects the validation sample for mapped external fields
// that never appeared and canonical fields that resolved to no value.
func sampleWarnings(cfg model.DatasourceConfig, sample []WorkItem) []string {
	var warnings []string

	mapped := make([]string, 0, len(cfg.FieldMap))
	for canonical := range cfg.FieldMap {
		mapped = append(mapped, canonical)
	}
	sort.Strings(mapped)
	for _, canonical := range mapped {
		external := cfg.FieldMap[canonical]
		present := false
		for _, rec := range sample {
			if _, ok := rec.Fields[external]; ok {
				present = true
				break
			}
		}
		if !present {
			warnings = append(warnings, fmt.Sprintf(
				"field %q (mapped to %s) was not present on any sampled record",
				external, canonical,
			))
		}
	}

	canonicals := make([]string, 0, len(defaultFieldMap))
	for canonical := range defaultFieldMap {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)
	for _, canonical := range canonicals {
		external := cfg.ExternalField(canonical, defaultFieldMap)
		observed := false
		for _, rec := range sample {
			if displayString(rec.Fields[external]) != "" {
				observed = true
				break
			}
		}
		if !observed {
			warnings = append(warnings, fmt.Sprintf(
				"no values observed for %s across %d sampled records",
				canonical, len(sample),
			))
		}
	}

	return warnings
}
