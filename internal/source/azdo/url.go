package azdo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openroadmap/roadmap/internal/source"
)

// ParseRecordURL extracts the organization endpoint, project, and record id
// from a tracker UI URL like
// https://dev.azure.com/contoso/Platform/_workitems/edit/4211.
func ParseRecordURL(rawURL string) (*source.ResolvedRecord, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing record URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("record URL %q has no host", rawURL)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	// Expect {org}/{project}/_workitems/edit/{id}.
	if len(segments) < 5 || segments[2] != "_workitems" || segments[3] != "edit" {
		return nil, fmt.Errorf("unrecognized record URL format: %s", rawURL)
	}

	id, err := strconv.Atoi(segments[4])
	if err != nil {
		return nil, fmt.Errorf("record id %q is not numeric", segments[4])
	}

	org, err := url.PathUnescape(segments[0])
	if err != nil {
		org = segments[0]
	}
	project, err := url.PathUnescape(segments[1])
	if err != nil {
		project = segments[1]
	}

	return &source.ResolvedRecord{
		EndpointURL: parsed.Scheme + "://" + parsed.Host + "/" + org,
		ProjectID:   project,
		RecordID:    id,
	}, nil
}

// ResolveRecordURL parses a tracker UI URL and, when a token is supplied,
// looks up the record to fill in its type and area path. Used to pre-fill a
// datasource configuration from a pasted link.
func ResolveRecordURL(
	ctx context.Context,
	rawURL string,
	token string,
	timeout time.Duration,
) (*source.ResolvedRecord, error) {
	resolved, err := ParseRecordURL(rawURL)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return resolved, nil
	}

	client := NewClient(resolved.EndpointURL, token, timeout)
	path := fmt.Sprintf(
		"/%s/_apis/wit/workitems/%d?$expand=relations",
		url.PathEscape(resolved.ProjectID), resolved.RecordID,
	)

	var detail WorkItemDetail
	if err := client.Get(ctx, "record lookup", path, &detail); err != nil {
		return nil, err
	}

	resolved.RecordType = displayString(detail.Fields["System.WorkItemType"])
	resolved.AreaPath = displayString(detail.Fields["System.AreaPath"])
	return resolved, nil
}
