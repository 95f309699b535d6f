package datacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natserract/datacloud/pkg/split"
	"go.uber.org/zap"
)

// JobRecorder persists bulk job lifecycle observations so interrupted runs
// can be reconciled later. Recording is best-effort: failures are logged
// and never block the ingest itself.
type JobRecorder interface {
	RecordJob(ctx context.Context, job *Job) error
	UpdateJobState(ctx context.Context, jobID, state string) error
}

// SetJobRecorder attaches an optional recorder for bulk job lifecycle events
func (c *Client) SetJobRecorder(r JobRecorder) {
	c.recorder = r
}

type createJobRequest struct {
	Object     string `json:"object"`
	SourceName string `json:"sourceName"`
	Operation  string `json:"operation"`
}

// CreateIngestJob opens a new bulk ingest job and returns it. The job stays
// in state Open until closed with CloseIngestJob or AbortJob.
func (c *Client) CreateIngestJob(ctx context.Context, sourceAPIName, objectName, operation string) (*Job, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Creating new job",
		zap.String("source", sourceAPIName),
		zap.String("object", objectName),
		zap.String("operation", operation))

	url := instanceURL + "/api/v1/ingest/jobs"
	resp, err := c.httpClient.Post(ctx, url, headers, createJobRequest{
		Object:     objectName,
		SourceName: sourceAPIName,
		Operation:  operation,
	})
	if err != nil {
		return nil, apiError("Create Job", url, err)
	}
	if resp.StatusCode != 201 {
		return nil, unexpectedStatus("Create Job", url, resp.StatusCode, resp.Body)
	}

	var job Job
	if err := json.Unmarshal(resp.Body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse create job response: %w", err)
	}

	c.logger.Info("Using job id", zap.String("job_id", job.ID))
	c.recordJob(ctx, &job)
	return &job, nil
}

// UploadJobFile splits the file into parts under BulkAPIMaxPayloadSize and
// uploads each part as a batch of the job. Returns the number of batches
// uploaded.
func (c *Client) UploadJobFile(ctx context.Context, jobID, filePath string) (int, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return 0, err
	}
	headers["Content-Type"] = "text/csv"

	url := fmt.Sprintf("%s/api/v1/ingest/jobs/%s/batches", instanceURL, jobID)
	c.logger.Info("Processing file", zap.String("file", filePath), zap.String("job_id", jobID))

	splitter := split.New(BulkAPIMaxPayloadSize, c.config.TempDir, c.config.InputFileEncoding, c.logger)
	return splitter.Split(ctx, filePath, func(partPath string, size int64) error {
		c.logger.Info("Uploading file part",
			zap.String("part", partPath),
			zap.Int64("size", size))

		payload, err := os.ReadFile(partPath)
		if err != nil {
			return fmt.Errorf("failed to read part file: %w", err)
		}

		resp, err := c.httpClient.Put(ctx, url, headers, payload)
		if err != nil {
			return apiError("Upload File", url, err)
		}
		if resp.StatusCode != 202 {
			return unexpectedStatus("Upload File", url, resp.StatusCode, resp.Body)
		}

		c.logger.Info("File upload complete, removing temp file", zap.String("part", partPath))
		return nil
	})
}

// CloseIngestJob marks the job UploadComplete so the vendor starts processing it
func (c *Client) CloseIngestJob(ctx context.Context, jobID string) (*Job, error) {
	return c.closeJob(ctx, jobID, JobStateUploadComplete)
}

// AbortJob terminates the specified job with state Aborted
func (c *Client) AbortJob(ctx context.Context, jobID string) (*Job, error) {
	return c.closeJob(ctx, jobID, JobStateAborted)
}

func (c *Client) closeJob(ctx context.Context, jobID, state string) (*Job, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/ingest/jobs/%s", instanceURL, jobID)
	resp, err := c.httpClient.Patch(ctx, url, headers, map[string]string{"state": state})
	if err != nil {
		return nil, apiError("Close Job", url, err)
	}

	var job Job
	if err := json.Unmarshal(resp.Body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse close job response: %w", err)
	}

	c.logger.Info("Closed job",
		zap.String("job_id", jobID),
		zap.String("state", state))
	c.recordJobState(ctx, jobID, state)
	return &job, nil
}

// BulkUpsert upserts one or more files of data via the Bulk Ingest API
func (c *Client) BulkUpsert(ctx context.Context, sourceAPIName, objectName string, filePaths []string) (*Job, error) {
	return c.bulkIngest(ctx, OperationUpsert, sourceAPIName, objectName, filePaths)
}

// BulkDelete deletes rows via the Bulk Ingest API. Files carry only the
// primary key column.
func (c *Client) BulkDelete(ctx context.Context, sourceAPIName, objectName string, filePaths []string) (*Job, error) {
	return c.bulkIngest(ctx, OperationDelete, sourceAPIName, objectName, filePaths)
}

// bulkIngest runs the full job lifecycle: create, upload every file's
// batches, close UploadComplete. Any failure after creation aborts the job
// so no Open job is left behind.
func (c *Client) bulkIngest(ctx context.Context, operation, sourceAPIName, objectName string, filePaths []string) (*Job, error) {
	job, err := c.CreateIngestJob(ctx, sourceAPIName, objectName, operation)
	if err != nil {
		return nil, err
	}

	closed := false
	defer func() {
		if closed {
			return
		}
		// Abort with a fresh context so cancellation doesn't leak the job
		if _, abortErr := c.AbortJob(context.WithoutCancel(ctx), job.ID); abortErr != nil {
			c.logger.Error("Failed to abort job after error",
				zap.String("job_id", job.ID),
				zap.Error(abortErr))
		}
	}()

	for _, filePath := range filePaths {
		batches, err := c.UploadJobFile(ctx, job.ID, filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", filePath, err)
		}
		c.logger.Info("Uploaded file",
			zap.String("file", filePath),
			zap.Int("batches", batches))
	}

	closedJob, err := c.CloseIngestJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	closed = true
	return closedJob, nil
}

func (c *Client) recordJob(ctx context.Context, job *Job) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordJob(ctx, job); err != nil {
		c.logger.Warn("Failed to record job in ledger",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

func (c *Client) recordJobState(ctx context.Context, jobID, state string) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.UpdateJobState(ctx, jobID, state); err != nil {
		c.logger.Warn("Failed to update job state in ledger",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}
