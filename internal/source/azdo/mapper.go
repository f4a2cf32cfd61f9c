package azdo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openroadmap/roadmap/internal/model"
)

// tagsField is the tracker's generic multi-purpose tag collection. When a
// list-valued canonical field reads from it, tag-prefix decoding applies;
// when remapped to a dedicated field, values pass through as a plain list.
const tagsField = "System.Tags"

// Reference names the mapper reads outside the canonical field map.
const (
	createdDateField = "System.CreatedDate"
	targetDateField  = "Microsoft.VSTS.Scheduling.TargetDate"
)

// defaultFieldMap is the built-in canonical→external field mapping. Any
// entry can be overridden per configuration through FieldMap.
var defaultFieldMap = map[string]string{
	model.FieldTitle:            "System.Title",
	model.FieldStakeholders:     tagsField,
	model.FieldSubmittedBy:      "System.CreatedBy",
	model.FieldDepartment:       "Custom.Department",
	model.FieldPriority:         "Microsoft.VSTS.Common.Priority",
	model.FieldShortDescription: "System.Description",
	model.FieldLongDescription:  "Custom.LongDescription",
	model.FieldCriticality:      "Custom.Criticality",
	model.FieldDisposition:      "System.State",
	model.FieldSponsor:          "Custom.ExecutiveSponsor",
	model.FieldStartDate:        "Microsoft.VSTS.Scheduling.StartDate",
	model.FieldEndDate:          targetDateField,
	model.FieldSize:             "Custom.Size",
	model.FieldPillar:           "Custom.Pillar",
	model.FieldRegions:          tagsField,
	model.FieldExpenseType:      "Custom.ExpenseType",
	model.FieldPointOfContact:   "Custom.PointOfContact",
	model.FieldLead:             "Custom.Lead",
}

// fetchFields returns every external field name a batch read must request:
// the built-in defaults unioned with all configured overrides plus the
// auxiliary date fields, in sorted order for deterministic requests.
func fetchFields(cfg model.DatasourceConfig) []string {
	seen := map[string]bool{
		createdDateField: true,
		targetDateField:  true,
	}
	for _, name := range defaultFieldMap {
		seen[name] = true
	}
	for _, name := range cfg.FieldMap {
		if name != "" {
			seen[name] = true
		}
	}

	fields := make([]string, 0, len(seen))
	for name := range seen {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// MapRecord converts one raw tracker record into the canonical roadmap
// item. The second return is false when the record is vetoed under the
// skip-record missing-date strategy; that is the only way a record can be
// dropped here. Mapping never fails: missing data produces a best-effort
// item.
func MapRecord(rec WorkItem, cfg model.DatasourceConfig) (model.RoadmapItem, bool) {
	resolve := func(canonical string) string {
		return cfg.ExternalField(canonical, defaultFieldMap)
	}
	value := func(canonical string) string {
		return displayString(rec.Fields[resolve(canonical)])
	}

	title := value(model.FieldTitle)
	if title == "" {
		title = fmt.Sprintf("Item %d", rec.ID)
	}

	startDate := parseDate(value(model.FieldStartDate))
	endDate := parseDate(value(model.FieldEndDate))
	if cfg.MissingDateStrategy == model.DateFallback {
		created := parseDate(displayString(rec.Fields[createdDateField]))
		if startDate == "" {
			startDate = created
		}
		if endDate == "" {
			endDate = parseDate(displayString(rec.Fields[targetDateField]))
		}
		if endDate == "" {
			endDate = startDate
		}
	}
	if cfg.MissingDateStrategy == model.DateSkipRecord &&
		(startDate == "" || endDate == "") {
		return model.RoadmapItem{}, false
	}

	item := model.RoadmapItem{
		ID:    strconv.Itoa(rec.ID),
		Title: title,
		URL: fmt.Sprintf(
			"%s/%s/_workitems/edit/%d",
			strings.TrimRight(cfg.EndpointURL, "/"), cfg.ProjectID, rec.ID,
		),
		Stakeholders: listField(
			rec, resolve(model.FieldStakeholders), cfg.StakeholderTagPrefix,
		),
		SubmittedBy:      value(model.FieldSubmittedBy),
		Department:       value(model.FieldDepartment),
		Priority:         value(model.FieldPriority),
		ShortDescription: value(model.FieldShortDescription),
		LongDescription:  value(model.FieldLongDescription),
		Criticality:      value(model.FieldCriticality),
		Disposition:      value(model.FieldDisposition),
		Sponsor:          value(model.FieldSponsor),
		StartDate:        startDate,
		EndDate:          endDate,
		Size:             normalizeSize(value(model.FieldSize)),
		Pillar:           titleCase(value(model.FieldPillar)),
		ExpenseType:      value(model.FieldExpenseType),
		PointOfContact:   value(model.FieldPointOfContact),
		Lead:             value(model.FieldLead),
	}

	regions := listField(rec, resolve(model.FieldRegions), cfg.RegionTagPrefix)
	item.Regions = make([]string, 0, len(regions))
	for _, r := range regions {
		item.Regions = append(item.Regions, strings.ToUpper(r))
	}
	item.Regions = dedupe(item.Regions)

	return item, true
}

// listField reads a multi-value field. Values sourced from the generic tag
// collection are filtered by prefix: tags matching prefix
// (case-insensitively) survive with the prefix stripped, everything else is
// discarded. Values from a dedicated field pass through unfiltered.
func listField(rec WorkItem, externalName, prefix string) []string {
	values := splitMulti(rec.Fields[externalName])
	if externalName == tagsField {
		values = decodePrefixed(values, prefix)
	}
	return dedupe(values)
}

// decodePrefixed keeps values carrying the prefix, stripped and trimmed.
func decodePrefixed(values []string, prefix string) []string {
	if prefix == "" {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if len(v) < len(prefix) {
			continue
		}
		if !strings.EqualFold(v[:len(prefix)], prefix) {
			continue
		}
		if stripped := strings.TrimSpace(v[len(prefix):]); stripped != "" {
			out = append(out, stripped)
		}
	}
	return out
}

// splitMulti turns a raw field value into a list of trimmed strings. The
// tracker serializes tag collections as "; "-separated strings but other
// fields may arrive as real JSON arrays.
func splitMulti(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s := displayString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		raw := displayString(v)
		if raw == "" {
			return nil
		}
		parts := strings.Split(raw, ";")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
}

// displayString extracts a displayable string from any shape the tracker
// API returns: scalars, lists (joined with ", "), or identity objects
// carrying a display-name-like key. Every raw field read in this package
// goes through here, so per-field type assumptions never accumulate.
func displayString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, e := range val {
			if s := displayString(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		for _, key := range []string{"displayName", "uniqueName", "mail", "email", "value"} {
			if s := displayString(val[key]); s != "" {
				return s
			}
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

// dateLayouts are tried in order when parsing tracker timestamps.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate normalizes a raw timestamp to an ISO date string, or empty when
// the value is missing or unparseable.
func parseDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// normalizeSize canonicalizes free-form size values to the XS/S/M/L enum.
func normalizeSize(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xs", "extra small", "extra-small":
		return model.SizeXS
	case "s", "small":
		return model.SizeS
	case "m", "medium":
		return model.SizeM
	case "l", "large":
		return model.SizeL
	default:
		return ""
	}
}

// titleCase title-cases a category value ("customer experience" →
// "Customer Experience").
func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
