package model

import "time"

// Canonical size categories for a roadmap item. An empty size means the
// source record carried no recognizable size value.
const (
	SizeXS = "XS"
	SizeS  = "S"
	SizeM  = "M"
	SizeL  = "L"
)

// Canonical field names used as keys in DatasourceConfig.FieldMap. Each one
// can be remapped to a different external field name per configuration.
const (
	FieldTitle            = "title"
	FieldStakeholders     = "stakeholders"
	FieldSubmittedBy      = "submittedBy"
	FieldDepartment       = "department"
	FieldPriority         = "priority"
	FieldShortDescription = "shortDescription"
	FieldLongDescription  = "longDescription"
	FieldCriticality      = "criticality"
	FieldDisposition      = "disposition"
	FieldSponsor          = "sponsor"
	FieldStartDate        = "startDate"
	FieldEndDate          = "endDate"
	FieldSize             = "size"
	FieldPillar           = "pillar"
	FieldRegions          = "regions"
	FieldExpenseType      = "expenseType"
	FieldPointOfContact   = "pointOfContact"
	FieldLead             = "lead"
)

// RoadmapItem is the canonical representation of one work item after field
// mapping. Items have no identity of their own; they are rebuilt from the
// external system on every sync and live only inside a Snapshot.
type RoadmapItem struct {
	// ID is the item's identifier in the external system.
	ID string `json:"id"`

	// Title is the display name, falling back to an id-derived label
	// when the source record has no title.
	Title string `json:"title"`

	// URL links back to the item in the external tracker UI.
	URL string `json:"url"`

	// Stakeholders are decoded from the tag field, de-duplicated,
	// preserving first-seen order.
	Stakeholders []string `json:"stakeholders"`

	// SubmittedBy is the display name of the person who filed the item.
	SubmittedBy string `json:"submittedBy"`

	// Department of the submitter, when the tracker carries one.
	Department string `json:"department"`

	// Priority is the numeric priority as text, or empty.
	Priority string `json:"priority"`

	ShortDescription string `json:"shortDescription"`
	LongDescription  string `json:"longDescription"`

	Criticality string `json:"criticality"`

	// Disposition is the item's status/disposition in the tracker.
	Disposition string `json:"disposition"`

	// Sponsor is the executive sponsor's display name.
	Sponsor string `json:"sponsor"`

	// StartDate and EndDate are ISO dates (YYYY-MM-DD). Either may be
	// empty depending on the configured missing-date strategy.
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	// Size is one of the Size* constants, or empty.
	Size string `json:"size"`

	// Pillar is the title-cased category the item belongs to.
	Pillar string `json:"pillar"`

	// Regions are normalized region codes decoded from the tag field.
	Regions []string `json:"regions"`

	ExpenseType    string `json:"expenseType"`
	PointOfContact string `json:"pointOfContact"`
	Lead           string `json:"lead"`
}

// Snapshot is the last successfully synced item list together with its
// capture time and truncation flag. It is replaced wholesale on every
// successful sync and never mutated in place.
type Snapshot struct {
	Items      []RoadmapItem `json:"items"`
	Truncated  bool          `json:"truncated"`
	CapturedAt time.Time     `json:"capturedAt"`
}

// SyncMeta records the outcome of the most recent sync attempt, successful
// or not. A non-empty Error with an older snapshot means the last attempt
// failed and the snapshot predates it.
type SyncMeta struct {
	LastSyncAt         *time.Time `json:"lastSyncAt,omitempty"`
	LastSyncDurationMs int64      `json:"lastSyncDurationMs"`
	LastSyncItemCount  int        `json:"lastSyncItemCount"`
	LastSyncError      string     `json:"lastSyncError,omitempty"`
}
