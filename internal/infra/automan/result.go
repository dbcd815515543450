package automan

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

// NotifyResult registers the stored archive with the annotation service.
func (c *Client) NotifyResult(ctx context.Context, projectID int64, result entity.ArchiveResult) error {
	path := fmt.Sprintf("/projects/%d/annotations/%d/archive/", projectID, result.AnnotationID)
	if err := c.postJSON(ctx, path, result, nil); err != nil {
		return fmt.Errorf("notify result: %w", err)
	}
	return nil
}

// Presign asks the annotation service for an upload URL for key in the given storage.
func (c *Client) Presign(ctx context.Context, storageID int64, key string) (string, error) {
	if c.presignedPath == "" {
		return "", fmt.Errorf("%w: automan info has no presigned path", entity.ErrConfiguration)
	}
	body := map[string]string{
		"storage_id": strconv.FormatInt(storageID, 10),
		"key":        key,
	}
	var res struct {
		URL string `json:"url"`
	}
	if err := c.postJSON(ctx, c.presignedPath, body, &res); err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	if res.URL == "" {
		return "", fmt.Errorf("%w: presign %s: empty url", entity.ErrUpstream, key)
	}
	return res.URL, nil
}
