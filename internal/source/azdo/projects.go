package azdo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openroadmap/roadmap/internal/source"
)

// ListProjects returns the projects visible at the endpoint. Used by the
// configuration flow, outside the hot sync path.
func (c *Connector) ListProjects(ctx context.Context) ([]source.Project, error) {
	var list ProjectList
	if err := c.client.Get(ctx, "project discovery", "/_apis/projects", &list); err != nil {
		return nil, err
	}

	projects := make([]source.Project, 0, len(list.Value))
	for _, p := range list.Value {
		projects = append(projects, source.Project{ID: p.ID, Name: p.Name})
	}
	return projects, nil
}

// Comments returns the discussion thread for one record.
func (c *Connector) Comments(
	ctx context.Context,
	project string,
	recordID int,
) ([]source.Comment, error) {
	path := fmt.Sprintf(
		"/%s/_apis/wit/workItems/%d/comments",
		url.PathEscape(project), recordID,
	)

	var list CommentList
	if err := c.client.Get(ctx, "comment lookup", path, &list); err != nil {
		return nil, err
	}

	comments := make([]source.Comment, 0, len(list.Comments))
	for _, cm := range list.Comments {
		comments = append(comments, source.Comment{
			Author:    displayString(cm.CreatedBy),
			Text:      cm.Text,
			CreatedAt: cm.CreatedDate,
		})
	}
	return comments, nil
}

// Relations returns the links attached to one record.
func (c *Connector) Relations(
	ctx context.Context,
	project string,
	recordID int,
) ([]source.Relation, error) {
	path := fmt.Sprintf(
		"/%s/_apis/wit/workitems/%d?$expand=relations",
		url.PathEscape(project), recordID,
	)

	var detail WorkItemDetail
	if err := c.client.Get(ctx, "relation lookup", path, &detail); err != nil {
		return nil, err
	}

	relations := make([]source.Relation, 0, len(detail.Relations))
	for _, rel := range detail.Relations {
		relations = append(relations, source.Relation{Kind: rel.Rel, URL: rel.URL})
	}
	return relations, nil
}
