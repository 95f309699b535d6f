package datacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	httpclient "github.com/natserract/datacloud/pkg/http"
	"go.uber.org/zap"
)

// streamingPayload is the envelope the Streaming Ingest API expects
type streamingPayload struct {
	Data []interface{} `json:"data"`
}

// StreamingUpsert sends one or more rows through the Streaming Ingest API.
// Rows are chunked so each request payload stays within
// StreamingAPIMaxPayloadSize; every chunk must be accepted (202) for the
// call to succeed. With testMode set the payload is validated by the
// vendor but not committed.
func (c *Client) StreamingUpsert(ctx context.Context, sourceAPIName, objectName string, rows []interface{}, testMode bool) (*IngestResponse, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/ingest/sources/%s/%s", instanceURL, sourceAPIName, objectName)
	if testMode {
		c.logger.Info("Test mode selected, records will not be committed")
		url += "/actions/test"
	}

	chunks, err := splitRowBatches(rows, StreamingAPIMaxPayloadSize)
	if err != nil {
		return nil, err
	}

	var last *IngestResponse
	for i, chunk := range chunks {
		resp, err := c.httpClient.Post(ctx, url, headers, streamingPayload{Data: chunk})
		if err != nil {
			return nil, apiError("Streaming UPSERT", url, err)
		}
		if resp.StatusCode != 202 {
			return nil, unexpectedStatus("Streaming UPSERT", url, resp.StatusCode, resp.Body)
		}

		c.logger.Info("Streaming UPSERT chunk accepted",
			zap.Int("chunk", i+1),
			zap.Int("chunks", len(chunks)),
			zap.Int("rows", len(chunk)))

		var accepted IngestResponse
		if err := json.Unmarshal(resp.Body, &accepted); err != nil {
			return nil, fmt.Errorf("failed to parse streaming response: %w", err)
		}
		last = &accepted
	}

	return last, nil
}

// StreamingDelete removes records by primary key through the Streaming
// Ingest API. Expects 202 from the vendor.
func (c *Client) StreamingDelete(ctx context.Context, sourceAPIName, objectName string, ids []string) (*IngestResponse, error) {
	headers, instanceURL, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/ingest/sources/%s/%s?ids=%s",
		instanceURL, sourceAPIName, objectName, strings.Join(ids, ","))

	resp, err := c.httpClient.Do(httpclient.RequestOptions{
		Method:  http.MethodDelete,
		URL:     url,
		Headers: headers,
		Context: ctx,
	})
	if err != nil {
		return nil, apiError("Streaming DELETE", url, err)
	}
	if resp.StatusCode != 202 {
		return nil, unexpectedStatus("Streaming DELETE", url, resp.StatusCode, resp.Body)
	}

	c.logger.Info("Streaming DELETE accepted", zap.Int("ids", len(ids)))

	var accepted IngestResponse
	if err := json.Unmarshal(resp.Body, &accepted); err != nil {
		return nil, fmt.Errorf("failed to parse streaming response: %w", err)
	}
	return &accepted, nil
}

// splitRowBatches groups rows so the serialized size of each group stays
// within maxSize. A single row larger than maxSize still goes out in its
// own group; the vendor rejects it with a clear error.
func splitRowBatches(rows []interface{}, maxSize int) ([][]interface{}, error) {
	var batches [][]interface{}
	var current []interface{}
	currentSize := 0

	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal row: %w", err)
		}
		rowSize := len(encoded)

		if currentSize+rowSize > maxSize && len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentSize = 0
		}

		current = append(current, row)
		currentSize += rowSize
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches, nil
}
