package azdo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/source"
)

// recentWindowDays is the lookback window applied by the recently-changed
// template.
const recentWindowDays = 90

// templateRecordTypes are the record types each simple-mode template
// implies when the configuration names none.
var templateRecordTypes = map[model.QueryTemplate][]string{
	model.TemplateActiveTopLevel:  {"Epic"},
	model.TemplateActiveChildren:  {"Feature", "User Story"},
	model.TemplateRecentlyChanged: {"Epic", "Feature", "User Story"},
}

// savedQueryResolver resolves a saved query id to its underlying query
// text. Implemented by Client; tests substitute a stub.
type savedQueryResolver interface {
	SavedQuery(ctx context.Context, project, id string) (string, error)
}

// BuildQuery turns a normalized configuration into the query string the
// tracker executes. Simple mode synthesizes a filter expression and is
// deterministic: identical config produces a byte-identical string with no
// network I/O. Advanced/inline passes the user's text through unchanged.
// Advanced/saved resolves the query id through one authenticated lookup.
func BuildQuery(
	ctx context.Context,
	cfg model.DatasourceConfig,
	resolver savedQueryResolver,
) (string, error) {
	if cfg.QueryMode == model.QueryModeAdvanced {
		if cfg.QueryKind == model.QueryKindSaved {
			wiql, err := resolver.SavedQuery(ctx, cfg.ProjectID, cfg.SavedQueryID)
			if err != nil {
				return "", fmt.Errorf("resolving saved query %s: %w", cfg.SavedQueryID, err)
			}
			return wiql, nil
		}
		return cfg.InlineQuery, nil
	}

	return buildSimpleQuery(cfg), nil
}

// buildSimpleQuery synthesizes WIQL for the curated templates. Clause order
// is fixed: record types, closed-state exclusion, recency window, area
// scope, then ordering.
func buildSimpleQuery(cfg model.DatasourceConfig) string {
	recordTypes := cfg.RecordTypes
	if len(recordTypes) == 0 {
		recordTypes = templateRecordTypes[cfg.Template]
	}
	// Sorted copy so map-free callers and tests see one canonical order.
	types := make([]string, len(recordTypes))
	copy(types, recordTypes)
	sort.Strings(types)

	var b strings.Builder
	b.WriteString("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project")

	if len(types) > 0 {
		quoted := make([]string, len(types))
		for i, t := range types {
			quoted[i] = "'" + escapeWiql(t) + "'"
		}
		b.WriteString(" AND [System.WorkItemType] IN (")
		b.WriteString(strings.Join(quoted, ", "))
		b.WriteString(")")
	}

	if !cfg.IncludeClosed {
		b.WriteString(" AND [System.State] <> 'Closed' AND [System.State] <> 'Removed'")
	}

	if cfg.Template == model.TemplateRecentlyChanged {
		fmt.Fprintf(&b, " AND [System.ChangedDate] >= @Today - %d", recentWindowDays)
	}

	if cfg.AreaFilter != "" {
		fmt.Fprintf(&b, " AND [System.AreaPath] UNDER '%s'", escapeWiql(cfg.AreaFilter))
	}

	b.WriteString(" ORDER BY [System.ChangedDate] DESC")
	return b.String()
}

// escapeWiql escapes single quotes inside a WIQL string literal.
func escapeWiql(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// SavedQuery fetches a saved query definition and returns its query text.
func (c *Client) SavedQuery(ctx context.Context, project, id string) (string, error) {
	path := fmt.Sprintf(
		"/%s/_apis/wit/queries/%s",
		url.PathEscape(project), url.PathEscape(id),
	)

	var saved SavedQuery
	if err := c.Get(ctx, "saved query lookup", path, &saved); err != nil {
		return "", err
	}
	if saved.Wiql == "" {
		return "", &source.UpstreamError{
			Op:  "saved query lookup",
			Err: fmt.Errorf("saved query %s has no query text", id),
		}
	}
	return saved.Wiql, nil
}
