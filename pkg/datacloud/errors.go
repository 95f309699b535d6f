package datacloud

import (
	"errors"
	"fmt"

	httpclient "github.com/natserract/datacloud/pkg/http"
)

// APIError is returned when a Data Cloud endpoint answers with an
// unexpected status. The body is the vendor's error payload, verbatim.
type APIError struct {
	Operation  string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("data cloud error during operation %q on URL %q with status code %d: %s",
		e.Operation, e.URL, e.StatusCode, e.Body)
}

// apiError wraps a transport error into an APIError, recovering the status
// code and body when the failure was a non-2xx response.
func apiError(operation, url string, err error) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return &APIError{
			Operation:  operation,
			URL:        url,
			StatusCode: statusErr.StatusCode,
			Body:       string(statusErr.Body),
		}
	}
	return fmt.Errorf("%s request failed: %w", operation, err)
}

// unexpectedStatus builds an APIError for a 2xx response whose status does
// not match what the endpoint documents for success.
func unexpectedStatus(operation, url string, status int, body []byte) error {
	return &APIError{
		Operation:  operation,
		URL:        url,
		StatusCode: status,
		Body:       string(body),
	}
}
