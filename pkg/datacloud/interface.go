package datacloud

import "context"

// DataCloudClient defines the interface for Data Cloud API operations
type DataCloudClient interface {
	// Authenticate performs the JWT bearer flow and Data Cloud token exchange
	Authenticate(ctx context.Context) (*ExchangeResponse, error)

	// StreamingUpsert sends rows via the Streaming Ingest API
	StreamingUpsert(ctx context.Context, sourceAPIName, objectName string, rows []interface{}, testMode bool) (*IngestResponse, error)

	// StreamingDelete removes records by primary key via the Streaming Ingest API
	StreamingDelete(ctx context.Context, sourceAPIName, objectName string, ids []string) (*IngestResponse, error)

	// BulkUpsert upserts one or more files of data via the Bulk Ingest API
	BulkUpsert(ctx context.Context, sourceAPIName, objectName string, filePaths []string) (*Job, error)

	// BulkDelete deletes rows via the Bulk Ingest API
	BulkDelete(ctx context.Context, sourceAPIName, objectName string, filePaths []string) (*Job, error)

	// ListJobs retrieves bulk ingest jobs
	ListJobs(ctx context.Context, params ListJobsParams) (*JobList, error)

	// JobInfo retrieves detailed information about the specified job
	JobInfo(ctx context.Context, jobID string) (*Job, error)

	// AbortJob terminates the specified job with state Aborted
	AbortJob(ctx context.Context, jobID string) (*Job, error)

	// AbortAllJobs aborts every job in state Open or UploadComplete
	AbortAllJobs(ctx context.Context) (int, error)

	// Query runs a SQL statement and returns the fully-paged result
	Query(ctx context.Context, sql string) (*QueryResult, error)
}

var _ DataCloudClient = (*Client)(nil)
