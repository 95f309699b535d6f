package datacloud

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// APITime is a custom time type that handles Salesforce API date formats
// The API returns dates without timezone (e.g., "2020-09-09T04:04:02.257")
type APITime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler for APITime
func (t *APITime) UnmarshalJSON(data []byte) error {
	var timeStr string
	if err := json.Unmarshal(data, &timeStr); err != nil {
		return err
	}

	if timeStr == "" {
		t.Time = time.Time{}
		return nil
	}

	// RFC3339 variants first (with timezone)
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, timeStr); err == nil {
			t.Time = parsed
			return nil
		}
	}

	// No timezone: strip milliseconds if present
	if strings.Contains(timeStr, ".") {
		parts := strings.Split(timeStr, ".")
		if len(parts) == 2 {
			if parsed, err := time.Parse("2006-01-02T15:04:05", parts[0]); err == nil {
				t.Time = parsed
				return nil
			}
		}
	}

	if parsed, err := time.Parse("2006-01-02T15:04:05", timeStr); err == nil {
		t.Time = parsed
		return nil
	}

	return fmt.Errorf("unable to parse time string: %s", timeStr)
}

// MarshalJSON implements json.Marshaler for APITime
func (t APITime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// AuthResponse represents the core OAuth token response from the JWT bearer flow
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	InstanceURL string `json:"instance_url"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type"`
}

// ExchangeResponse represents the Data Cloud token exchange response.
// InstanceURL is the off-core instance serving the Data Cloud APIs.
type ExchangeResponse struct {
	AccessToken     string `json:"access_token"`
	InstanceURL     string `json:"instance_url"`
	TokenType       string `json:"token_type"`
	IssuedTokenType string `json:"issued_token_type"`
	ExpiresIn       int    `json:"expires_in"`
}

// Bulk job states as reported by the Ingest API
const (
	JobStateOpen           = "Open"
	JobStateUploadComplete = "UploadComplete"
	JobStateInProgress     = "InProgress"
	JobStateJobComplete    = "JobComplete"
	JobStateFailed         = "Failed"
	JobStateAborted        = "Aborted"
)

// Bulk job operations
const (
	OperationUpsert = "upsert"
	OperationDelete = "delete"
)

// Job represents a Data Cloud bulk ingest job
type Job struct {
	ID                  string  `json:"id"`
	Operation           string  `json:"operation"`
	Object              string  `json:"object"`
	SourceName          string  `json:"sourceName"`
	CreatedByID         string  `json:"createdById"`
	CreatedDate         APITime `json:"createdDate"`
	SystemModstamp      APITime `json:"systemModstamp"`
	State               string  `json:"state"`
	ContentType         string  `json:"contentType"`
	APIVersion          string  `json:"apiVersion"`
	ContentURL          string  `json:"contentUrl,omitempty"`
	Retries             int     `json:"retries,omitempty"`
	TotalProcessingTime int64   `json:"totalProcessingTime,omitempty"`
}

// JobList represents the response from the job listing endpoint
type JobList struct {
	Data []Job `json:"data"`
}

// IngestResponse represents the acknowledgement from the Streaming Ingest API
type IngestResponse struct {
	Accepted bool `json:"accepted"`
}

// QueryColumn describes one column of a query result
type QueryColumn struct {
	Type         string `json:"type"`
	TypeCode     int    `json:"typeCode"`
	PlaceInOrder int    `json:"placeInOrder"`
}

// queryResponse is the wire shape of a single Query API page
type queryResponse struct {
	Data        [][]interface{}        `json:"data"`
	StartTime   string                 `json:"startTime"`
	EndTime     string                 `json:"endTime"`
	RowCount    int                    `json:"rowCount"`
	QueryID     string                 `json:"queryId"`
	Done        bool                   `json:"done"`
	NextBatchID string                 `json:"nextBatchId"`
	Metadata    map[string]QueryColumn `json:"metadata"`
}

// QueryResult holds the fully-paged result of a query
type QueryResult struct {
	QueryID  string
	Metadata map[string]QueryColumn
	Rows     [][]interface{}
}

// Columns returns the column names ordered by their place in the result rows
func (r *QueryResult) Columns() []string {
	names := make([]string, 0, len(r.Metadata))
	for name := range r.Metadata {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.Metadata[names[i]].PlaceInOrder < r.Metadata[names[j]].PlaceInOrder
	})
	return names
}
