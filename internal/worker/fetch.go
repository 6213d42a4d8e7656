package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aniview/aniview/internal/domain"
)

// Fetcher issues a request to the live network and snapshots the response.
// The worker depends on this interface so strategy tests can simulate
// offline conditions without sockets.
type Fetcher interface {
	Do(ctx context.Context, req *FetchRequest) (*CachedResponse, error)
}

// HTTPFetcher is the production Fetcher over net/http. Relative request
// URLs are resolved against the configured origin.
type HTTPFetcher struct {
	client *http.Client
	base   *url.URL
	logger domain.Logger
}

// NewHTTPFetcher creates a fetcher for the given origin.
func NewHTTPFetcher(logger domain.Logger, baseURL string, timeout time.Duration) (*HTTPFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse fetcher base URL %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		base:   base,
		logger: logger,
	}, nil
}

// Do issues the request and reads the full response into a snapshot.
func (f *HTTPFetcher) Do(ctx context.Context, req *FetchRequest) (*CachedResponse, error) {
	target := req.URL
	if !target.IsAbs() {
		target = f.base.ResolveReference(target)
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", req.Method, target, err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", req.Method, target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body for %s: %w", target, err)
	}

	return &CachedResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     respBody,
		StoredAt: time.Now().UTC(),
	}, nil
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

// synthesizeOfflineResponse builds the structured offline payload returned
// when neither network nor cache can serve an API request. Listing paths
// get an empty page the UI can render with an explicit offline state;
// everything else gets a generic 503.
func synthesizeOfflineResponse(path string, now time.Time) *CachedResponse {
	if len(path) >= len("/api/anime/") && path[:len("/api/anime/")] == "/api/anime/" {
		body, _ := json.Marshal(map[string]interface{}{
			"data": map[string]interface{}{
				"Page": map[string]interface{}{
					"media":    []interface{}{},
					"pageInfo": map[string]interface{}{"hasNextPage": false, "currentPage": 1},
				},
			},
			"offline": true,
			"message": "You are offline. Cached data is unavailable for this view.",
		})
		return &CachedResponse{Status: http.StatusOK, Header: jsonHeader(), Body: body, StoredAt: now}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"error":   "You are offline and this data is not cached.",
		"offline": true,
	})
	return &CachedResponse{Status: http.StatusServiceUnavailable, Header: jsonHeader(), Body: body, StoredAt: now}
}
