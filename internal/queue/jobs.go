package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// IndexDocumentTask is scheduled after each successful PDF upload so the
// worker can fill in the page count and text preview.
const IndexDocumentTask = "document:index"

// IndexPayload is serialized into the task payload so the worker knows which
// object to download from storage.
type IndexPayload struct {
	FileID    string `json:"file_id"`
	ObjectKey string `json:"object_key"`
	FileName  string `json:"file_name"`
}

// Client wraps an asynq client behind the enqueue interface the upload
// orchestrator consumes.
type Client struct {
	inner *asynq.Client
}

// NewClient constructs a Client.
func NewClient(inner *asynq.Client) *Client {
	return &Client{inner: inner}
}

// EnqueueIndex enqueues a document indexing job.
func (c *Client) EnqueueIndex(ctx context.Context, payload IndexPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(IndexDocumentTask, data)
	if _, err := c.inner.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue index task: %w", err)
	}
	return nil
}
