package model

// DatasourceKind identifies where a roadmap's items come from.
type DatasourceKind string

const (
	KindTabular DatasourceKind = "tabular"
	KindTracker DatasourceKind = "external-tracker"
)

// QueryMode selects between the curated simple templates and the advanced
// user-supplied query paths.
type QueryMode string

const (
	QueryModeSimple   QueryMode = "simple"
	QueryModeAdvanced QueryMode = "advanced"
)

// QueryKind refines advanced mode: an inline query string, or a saved query
// resolved by id through the tracker API.
type QueryKind string

const (
	QueryKindInline QueryKind = "inlineQuery"
	QueryKindSaved  QueryKind = "savedQueryId"
)

// QueryTemplate is a curated preset used only in simple mode.
type QueryTemplate string

const (
	TemplateActiveTopLevel  QueryTemplate = "active-top-level"
	TemplateActiveChildren  QueryTemplate = "active-children"
	TemplateRecentlyChanged QueryTemplate = "recently-changed"
)

// MissingDateStrategy controls what the field mapper does when a record has
// no usable start or end date.
type MissingDateStrategy string

const (
	// DateFallback substitutes the record's creation date for a missing
	// start and the target date (or resolved start) for a missing end.
	DateFallback MissingDateStrategy = "fallbackToCreatedOrTarget"

	// DateSkipRecord drops the record from the snapshot when either
	// resolved date is still empty.
	DateSkipRecord MissingDateStrategy = "skipRecord"
)

// Limits applied by NormalizeDatasourceConfig.
const (
	MinRefreshMinutes     = 5
	MaxRefreshMinutes     = 60
	DefaultRefreshMinutes = 15

	MinItems     = 1
	MaxItemsCap  = 2000
	DefaultItems = 500
)

// Default tag prefixes used to decode stakeholder and region lists out of
// the tracker's generic tag field.
const (
	DefaultStakeholderPrefix = "Stakeholder:"
	DefaultRegionPrefix      = "Region:"
)

// DatasourceConfig is the fully defaulted connection configuration for one
// roadmap. Downstream components may assume every field is well-typed and
// within range; NormalizeDatasourceConfig is the only way user input becomes
// one of these.
type DatasourceConfig struct {
	Kind DatasourceKind `json:"kind"`

	// EndpointURL is the organization root URL of the tracker.
	EndpointURL string `json:"endpointUrl"`
	ProjectID   string `json:"projectId"`
	TeamID      string `json:"teamId,omitempty"`

	QueryMode QueryMode     `json:"queryMode"`
	QueryKind QueryKind     `json:"queryKind,omitempty"`
	Template  QueryTemplate `json:"queryTemplate,omitempty"`

	// InlineQuery is the user-supplied query text (advanced/inline mode).
	InlineQuery string `json:"inlineQuery,omitempty"`

	// SavedQueryID is resolved through the tracker (advanced/saved mode).
	SavedQueryID string `json:"savedQueryId,omitempty"`

	AreaFilter    string   `json:"areaFilter,omitempty"`
	RecordTypes   []string `json:"recordTypes"`
	IncludeClosed bool     `json:"includeClosed"`

	StakeholderTagPrefix string `json:"stakeholderTagPrefix"`
	RegionTagPrefix      string `json:"regionTagPrefix"`

	// FieldMap overrides the built-in canonical→external field names.
	// Keys are the Field* constants; unset keys use the defaults.
	FieldMap map[string]string `json:"fieldMap,omitempty"`

	RefreshIntervalMinutes int `json:"refreshIntervalMinutes"`
	MaxItems               int `json:"maxItems"`

	MissingDateStrategy MissingDateStrategy `json:"missingDateStrategy"`
}

// NormalizeDatasourceConfig turns an arbitrary decoded JSON object into a
// DatasourceConfig with every field defaulted, coerced, and clamped. It is
// the single trust boundary for datasource configuration: it never fails,
// it only replaces unusable values with defaults.
func NormalizeDatasourceConfig(raw map[string]any) DatasourceConfig {
	cfg := DatasourceConfig{
		Kind:                   KindTracker,
		QueryMode:              QueryModeSimple,
		Template:               TemplateActiveTopLevel,
		StakeholderTagPrefix:   DefaultStakeholderPrefix,
		RegionTagPrefix:        DefaultRegionPrefix,
		RefreshIntervalMinutes: DefaultRefreshMinutes,
		MaxItems:               DefaultItems,
		MissingDateStrategy:    DateFallback,
	}
	if raw == nil {
		return cfg
	}

	if asString(raw["kind"]) == string(KindTabular) {
		cfg.Kind = KindTabular
	}

	cfg.EndpointURL = asString(raw["endpointUrl"])
	cfg.ProjectID = asString(raw["projectId"])
	cfg.TeamID = asString(raw["teamId"])

	if asString(raw["queryMode"]) == string(QueryModeAdvanced) {
		cfg.QueryMode = QueryModeAdvanced
		cfg.QueryKind = QueryKindInline
		if asString(raw["queryKind"]) == string(QueryKindSaved) {
			cfg.QueryKind = QueryKindSaved
		}
	}

	switch QueryTemplate(asString(raw["queryTemplate"])) {
	case TemplateActiveChildren:
		cfg.Template = TemplateActiveChildren
	case TemplateRecentlyChanged:
		cfg.Template = TemplateRecentlyChanged
	}

	cfg.InlineQuery = asString(raw["inlineQuery"])
	cfg.SavedQueryID = asString(raw["savedQueryId"])
	cfg.AreaFilter = asString(raw["areaFilter"])
	cfg.RecordTypes = asStringSlice(raw["recordTypes"])
	cfg.IncludeClosed = asBool(raw["includeClosed"])

	if p := asString(raw["stakeholderTagPrefix"]); p != "" {
		cfg.StakeholderTagPrefix = p
	}
	if p := asString(raw["regionTagPrefix"]); p != "" {
		cfg.RegionTagPrefix = p
	}

	if m := asStringMap(raw["fieldMap"]); len(m) > 0 {
		cfg.FieldMap = m
	}

	if n, ok := asInt(raw["refreshIntervalMinutes"]); ok {
		cfg.RefreshIntervalMinutes = clampInt(n, MinRefreshMinutes, MaxRefreshMinutes)
	}
	if n, ok := asInt(raw["maxItems"]); ok {
		cfg.MaxItems = clampInt(n, MinItems, MaxItemsCap)
	}

	if asString(raw["missingDateStrategy"]) == string(DateSkipRecord) {
		cfg.MissingDateStrategy = DateSkipRecord
	}

	return cfg
}

// ExternalField returns the external field name backing a canonical field,
// consulting the per-config override map before the supplied defaults.
func (c DatasourceConfig) ExternalField(canonical string, defaults map[string]string) string {
	if name, ok := c.FieldMap[canonical]; ok && name != "" {
		return name
	}
	return defaults[canonical]
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

// asInt accepts the numeric shapes JSON decoding can produce. The second
// return reports whether a usable number was present at all.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asStringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s := asString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asStringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, val := range m {
			if k != "" && val != "" {
				out[k] = val
			}
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			if s := asString(val); k != "" && s != "" {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
