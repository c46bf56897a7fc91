package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/matzehuels/kinview/pkg/buildinfo"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Fetch GETs url and returns at most limit bytes of the body and the status
// code. Transport errors, 429 and 5xx are returned as [RetryableError]; other
// non-2xx statuses as a plain [*StatusError]. A limit <= 0 means unlimited.
func Fetch(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, int, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, Retryable(err)
	}
	defer resp.Body.Close()

	if err := classify(url, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, err
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, resp.StatusCode, Retryable(err)
	}
	return data, resp.StatusCode, nil
}

func classify(url string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return Retryable(&StatusError{URL: url, Status: status})
	default:
		return &StatusError{URL: url, Status: status}
	}
}
