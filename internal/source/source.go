// Package source defines the contract an external tracker connector must
// satisfy, together with the error taxonomy shared between connectors and
// the snapshot engine.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/openroadmap/roadmap/internal/model"
)

// ErrConfigIncomplete means the datasource configuration is missing its
// endpoint or project, so no network call can be attempted. Terminal: no
// retry, no fallback.
var ErrConfigIncomplete = errors.New("datasource configuration incomplete: endpoint and project are required")

// ErrMissingCredential means a live sync was requested but no credential is
// stored. Terminal by policy even when an old snapshot exists; a connection
// that was never operable has nothing trustworthy to fall back to.
var ErrMissingCredential = errors.New("no credential stored for datasource")

// UpstreamError is any non-2xx or transport failure from the tracker API.
// The engine recovers from it by falling back to the last snapshot when one
// exists.
type UpstreamError struct {
	// Op names the failing call, e.g. "query" or "batch read".
	Op string

	// Status is the HTTP status code, or 0 for transport failures.
	Status int

	// Body is the raw response body, when one was received.
	Body string

	// Err is the underlying transport error, when there is one.
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("upstream %s failed with status %d: %s", e.Op, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstreamError reports whether err (or any error in its chain) is an
// UpstreamError.
func IsUpstreamError(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

// SyncResult holds the fully mapped item list from one live sync.
type SyncResult struct {
	Items []model.RoadmapItem

	// Truncated is set when the external query matched at least as many
	// records as the configured maximum, so Items may be incomplete.
	Truncated bool
}

// Project is one project visible at a tracker endpoint.
type Project struct {
	ID   string
	Name string
}

// Comment is one comment on a tracker record.
type Comment struct {
	Author    string
	Text      string
	CreatedAt string
}

// Relation links a tracker record to another record or artifact.
type Relation struct {
	Kind string
	URL  string
}

// ResolvedRecord is the result of parsing a tracker UI URL, optionally
// enriched with the record's type and area path when a credential allowed a
// lookup.
type ResolvedRecord struct {
	EndpointURL string
	ProjectID   string
	RecordID    int
	RecordType  string
	AreaPath    string
}

// Connector is the contract every external tracker integration satisfies.
// Implementations must be safe for concurrent use; the engine may run
// independent syncs for different roadmaps at once.
type Connector interface {
	// Sync fetches and maps every record the configuration selects.
	// Fails with ErrConfigIncomplete before any network call when the
	// connection identity is missing; any API failure aborts the whole
	// sync with an UpstreamError and no partial result.
	Sync(ctx context.Context, cfg model.DatasourceConfig) (*SyncResult, error)

	// Validate dry-runs the configuration over a small sample and
	// reports non-fatal warnings: mapped external field names the
	// sample never carried, and canonical fields that resolved to no
	// value across the sample. It never writes anything.
	Validate(ctx context.Context, cfg model.DatasourceConfig) ([]string, error)
}
