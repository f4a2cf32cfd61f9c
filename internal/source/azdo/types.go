package azdo

// wiqlRequest is the body for POST {project}/_apis/wit/wiql.
type wiqlRequest struct {
	Query string `json:"query"`
}

// WiqlResponse is the ordered id list a query execution returns.
type WiqlResponse struct {
	WorkItems []WorkItemRef `json:"workItems"`
}

// WorkItemRef references a work item by id.
type WorkItemRef struct {
	ID int `json:"id"`
}

// batchRequest is the body for POST {project}/_apis/wit/workitemsbatch.
type batchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields"`
}

// BatchResponse wraps a page of full work item records.
type BatchResponse struct {
	Value []WorkItem `json:"value"`
}

// WorkItem is one raw record from the tracker. Fields is deliberately
// untyped; the mapper is the only component that reads from it, through a
// single generic string-extraction routine.
type WorkItem struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
}

// SavedQuery is the response from GET {project}/_apis/wit/queries/{id}.
type SavedQuery struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Wiql string `json:"wiql"`
}

// ProjectList is the response from GET _apis/projects.
type ProjectList struct {
	Value []ProjectRef `json:"value"`
}

// ProjectRef is one project at an endpoint.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CommentList is the response from the per-item comments endpoint.
type CommentList struct {
	TotalCount int           `json:"totalCount"`
	Comments   []ItemComment `json:"comments"`
}

// ItemComment is a single comment on a work item.
type ItemComment struct {
	Text        string         `json:"text"`
	CreatedDate string         `json:"createdDate"`
	CreatedBy   map[string]any `json:"createdBy"`
}

// WorkItemDetail is a single work item expanded with its relations.
type WorkItemDetail struct {
	ID        int            `json:"id"`
	Fields    map[string]any `json:"fields"`
	Relations []ItemRelation `json:"relations"`
}

// ItemRelation is one link from a work item to another artifact.
type ItemRelation struct {
	Rel string `json:"rel"`
	URL string `json:"url"`
}
