package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fetchURL retrieves one URL within the given timeout and returns the body
// plus selected response headers. Non-2xx responses are errors.
func fetchURL(ctx context.Context, client *http.Client, url, userAgent string, timeout time.Duration) ([]byte, map[string]string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := make(map[string]string)
	for _, name := range []string{"ETag", "Last-Modified", "Content-Type"} {
		if v := resp.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	return data, headers, nil
}
