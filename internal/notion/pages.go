package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// PageSpec describes a page to create. Exactly one of DatabaseID or
// ParentPageID must be set. Children must already respect the per-request
// limit; the caller appends any remainder separately.
type PageSpec struct {
	DatabaseID   string
	ParentPageID string
	Properties   notionapi.Properties
	Icon         *notionapi.Icon
	Cover        *notionapi.Image
	Children     []notionapi.Block
}

// PageResult contains information about a created or updated page.
type PageResult struct {
	PageID    string
	URL       string
	CreatedAt string
	UpdatedAt string
}

// CreatePage creates a new page with properties and an initial set of
// child blocks.
func (c *Client) CreatePage(ctx context.Context, spec PageSpec) (*PageResult, error) {
	var parent notionapi.Parent
	switch {
	case spec.DatabaseID != "":
		parent = notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(spec.DatabaseID),
		}
	case spec.ParentPageID != "":
		parent = notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(spec.ParentPageID),
		}
	default:
		return nil, fmt.Errorf("create page: no parent given")
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	created, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent:     parent,
		Properties: spec.Properties,
		Icon:       spec.Icon,
		Cover:      spec.Cover,
		Children:   spec.Children,
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &PageResult{
		PageID:    string(created.ID),
		URL:       created.URL,
		CreatedAt: created.CreatedTime.String(),
		UpdatedAt: created.LastEditedTime.String(),
	}, nil
}

// UpdatePageProperties writes property values on an existing page.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, props notionapi.Properties) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("update properties: %w", err)
	}
	return nil
}

// GetPage retrieves a page by ID.
func (c *Client) GetPage(ctx context.Context, pageID string) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	return page, nil
}
