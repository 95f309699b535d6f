// Package datacloud provides a client for the Salesforce Data Cloud REST
// APIs: the Ingest API (streaming and bulk), the Query API, and the bulk
// job management endpoints.
//
// Authentication uses the OAuth 2.0 JWT bearer flow against the core
// Salesforce org followed by the Data Cloud token exchange, which yields an
// off-core access token and instance URL. Tokens are cached and refreshed
// transparently; every API method authenticates before issuing its request.
//
// Key features:
//   - Streaming Ingest: upsert or delete individual rows, with payloads
//     chunked to stay within the streaming size limit
//   - Bulk Ingest: create a job, upload CSV files split into batches under
//     the bulk payload limit, then close the job for processing
//   - Job management: list, inspect, and abort asynchronous bulk jobs
//   - Query: run SQL against Data Cloud with transparent result paging
//
// Limits follow the published Data Cloud guidelines, see
// https://help.salesforce.com/s/articleView?id=sf.c360_a_limits_and_guidelines.htm
package datacloud

import (
	"strings"
	"sync"
	"time"

	httpclient "github.com/natserract/datacloud/pkg/http"
	"go.uber.org/zap"
)

// Data Cloud payload limits
const (
	// BulkAPIMaxPayloadSize is the maximum size of a single bulk batch upload.
	BulkAPIMaxPayloadSize = 150 * 1000 * 1000

	// StreamingAPIMaxPayloadSize is the maximum size of a streaming ingest payload.
	StreamingAPIMaxPayloadSize = 200 * 1000
)

// Client is the main client for interacting with the Salesforce Data Cloud API
type Client struct {
	config     *Config
	httpClient *httpclient.Client
	tokenCache *tokenCache
	logger     *zap.Logger
	recorder   JobRecorder
}

// tokenCache manages the exchanged Data Cloud token with thread-safe access
type tokenCache struct {
	mu          sync.RWMutex
	accessToken string
	instanceURL string
	expiresAt   time.Time
}

// NewClient creates a new Data Cloud client with default production logger
func NewClient(cfg *Config) *Client {
	logger, _ := zap.NewProduction()
	return NewClientWithLogger(cfg, logger)
}

// NewClientWithLogger creates a new Data Cloud client with a custom logger
func NewClientWithLogger(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: httpclient.NewClientWithLogger(logger),
		tokenCache: &tokenCache{},
		logger:     logger,
	}
}

// normalizeBaseURL prepends https:// when the vendor hands back a bare host.
// The token endpoints return instance URLs without a scheme.
func normalizeBaseURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}
