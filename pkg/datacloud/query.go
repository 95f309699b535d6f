package datacloud

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

// Query runs a SQL statement against Data Cloud and returns the complete
// result. Paged responses are followed via nextBatchId until the vendor
// reports done.
func (c *Client) Query(ctx context.Context, sql string) (*QueryResult, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Execute query", zap.String("sql", sql))

	queryURL := instanceURL + "/api/v2/query"
	resp, err := c.httpClient.Post(ctx, queryURL, headers, queryRequest{SQL: sql})
	if err != nil {
		return nil, apiError("Query", queryURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, unexpectedStatus("Query", queryURL, resp.StatusCode, resp.Body)
	}

	var page queryResponse
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	result := &QueryResult{
		QueryID:  page.QueryID,
		Metadata: page.Metadata,
		Rows:     page.Data,
	}

	for !page.Done {
		batchURL := fmt.Sprintf("%s/api/v2/query/%s", instanceURL, page.NextBatchID)
		c.logger.Info("Fetch next batch of results", zap.String("next_batch_id", page.NextBatchID))

		resp, err := c.httpClient.Get(ctx, batchURL, headers)
		if err != nil {
			return nil, apiError("Query", batchURL, err)
		}
		if resp.StatusCode != 200 {
			return nil, unexpectedStatus("Query", batchURL, resp.StatusCode, resp.Body)
		}

		page = queryResponse{}
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse query batch response: %w", err)
		}
		result.Rows = append(result.Rows, page.Data...)
	}

	c.logger.Info("Query returned rows", zap.Int("rows", len(result.Rows)))
	return result, nil
}
