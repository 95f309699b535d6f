package datacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	httpclient "github.com/natserract/datacloud/pkg/http"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ActiveJobStates are the states a job passes through before reaching a
// terminal state.
var ActiveJobStates = []string{JobStateOpen, JobStateUploadComplete, JobStateInProgress}

// ListJobsParams narrows the job listing. Zero values fall back to the
// vendor defaults (limit 20, ordered by systemModstamp).
type ListJobsParams struct {
	Limit   int
	Offset  int
	OrderBy string
	States  []string
}

// ListJobs retrieves bulk ingest jobs, newest first by default
func (c *Client) ListJobs(ctx context.Context, params ListJobsParams) (*JobList, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Get list of jobs")

	q := map[string]string{}
	if params.Limit > 0 {
		q["limit"] = strconv.Itoa(params.Limit)
	}
	if params.Offset > 0 {
		q["offset"] = strconv.Itoa(params.Offset)
	}
	if params.OrderBy != "" {
		q["orderby"] = params.OrderBy
	}
	if len(params.States) > 0 {
		q["states"] = strings.Join(params.States, ",")
	}

	listURL, err := httpclient.BuildURL(instanceURL, "/api/v1/ingest/jobs", q)
	if err != nil {
		return nil, fmt.Errorf("failed to build job list URL: %w", err)
	}

	resp, err := c.httpClient.Get(ctx, listURL, headers)
	if err != nil {
		return nil, apiError("List Jobs", listURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, unexpectedStatus("List Jobs", listURL, resp.StatusCode, resp.Body)
	}

	var list JobList
	if err := json.Unmarshal(resp.Body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse job list response: %w", err)
	}

	c.logger.Info("Fetched jobs", zap.Int("count", len(list.Data)))
	return &list, nil
}

// JobInfo retrieves detailed information about the specified job
func (c *Client) JobInfo(ctx context.Context, jobID string) (*Job, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Get information for job", zap.String("job_id", jobID))

	infoURL, err := httpclient.BuildURL(instanceURL, "/api/v1/ingest/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build job info URL: %w", err)
	}
	resp, err := c.httpClient.Get(ctx, infoURL, headers)
	if err != nil {
		return nil, apiError("Job Info", infoURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, unexpectedStatus("Job Info", infoURL, resp.StatusCode, resp.Body)
	}

	var job Job
	if err := json.Unmarshal(resp.Body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job info response: %w", err)
	}
	return &job, nil
}

// AbortAllJobs aborts every job currently in state Open or UploadComplete.
// Aborts run with bounded concurrency; the first failure is returned after
// all attempts finish.
func (c *Client) AbortAllJobs(ctx context.Context) (int, error) {
	list, err := c.ListJobs(ctx, ListJobsParams{
		Limit:  100,
		States: []string{JobStateOpen, JobStateUploadComplete},
	})
	if err != nil {
		return 0, err
	}

	p := pool.New().WithMaxGoroutines(5).WithErrors()
	for _, job := range list.Data {
		job := job // capture loop variable
		p.Go(func() error {
			c.logger.Info("Abort job", zap.String("job_id", job.ID))
			if _, err := c.AbortJob(ctx, job.ID); err != nil {
				return fmt.Errorf("failed to abort job %s: %w", job.ID, err)
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return len(list.Data), err
	}
	return len(list.Data), nil
}
