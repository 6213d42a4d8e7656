// Package anilist implements the upstream catalog client against the
// AniList GraphQL API.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/adapters/metrics"
	"github.com/aniview/aniview/internal/domain"
)

// Client issues GraphQL requests to the catalog service. It implements
// domain.CatalogClient.
type Client struct {
	url        string
	httpClient *http.Client
	logger     domain.Logger
}

// NewClient creates a catalog client from configuration.
func NewClient(cfgProvider config.Provider, logger domain.Logger) *Client {
	catalogCfg := cfgProvider.Get().Catalog

	timeout := 15 * time.Second
	if catalogCfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(catalogCfg.RequestTimeoutSeconds) * time.Second
	}

	return &Client{
		url:        catalogCfg.UpstreamURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type pageEnvelope struct {
	Data struct {
		Page domain.CatalogPage `json:"Page"`
	} `json:"data"`
	Errors []graphqlError `json:"errors,omitempty"`
}

type mediaEnvelope struct {
	Data struct {
		Media *domain.AnimeMedia `json:"Media"`
	} `json:"data"`
	Errors []graphqlError `json:"errors,omitempty"`
}

func (c *Client) post(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal catalog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("network_error").Inc()
		c.logger.Error(ctx, "Catalog request failed", "url", c.url, "error", err.Error())
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues("http_error").Inc()
		c.logger.Error(ctx, "Catalog returned non-success status", "status", resp.StatusCode)
		return fmt.Errorf("catalog API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequests.WithLabelValues("decode_error").Inc()
		return fmt.Errorf("decode catalog response: %w", err)
	}

	metrics.UpstreamRequests.WithLabelValues("success").Inc()
	return nil
}

func graphqlErrorsToErr(errs []graphqlError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("catalog GraphQL errors: %s", strings.Join(msgs, ", "))
}

// Listing fetches one page of the given listing view.
func (c *Client) Listing(ctx context.Context, q domain.ListingQuery) (*domain.CatalogPage, error) {
	var envelope pageEnvelope
	variables := map[string]any{"page": q.Page, "perPage": q.PerPage}
	if err := c.post(ctx, listingQuery(q.Kind), variables, &envelope); err != nil {
		return nil, err
	}
	if err := graphqlErrorsToErr(envelope.Errors); err != nil {
		return nil, err
	}
	return &envelope.Data.Page, nil
}

// Search fetches one page of titles matching the search term.
func (c *Client) Search(ctx context.Context, term string, page, perPage int) (*domain.CatalogPage, error) {
	var envelope pageEnvelope
	variables := map[string]any{"search": term, "page": page, "perPage": perPage}
	if err := c.post(ctx, searchQuery, variables, &envelope); err != nil {
		return nil, err
	}
	if err := graphqlErrorsToErr(envelope.Errors); err != nil {
		return nil, err
	}
	return &envelope.Data.Page, nil
}

// Detail fetches a single title by its upstream ID, including relations.
func (c *Client) Detail(ctx context.Context, id int) (*domain.AnimeMedia, error) {
	var envelope mediaEnvelope
	if err := c.post(ctx, detailQuery, map[string]any{"id": id}, &envelope); err != nil {
		return nil, err
	}
	if err := graphqlErrorsToErr(envelope.Errors); err != nil {
		return nil, err
	}
	if envelope.Data.Media == nil {
		return nil, fmt.Errorf("catalog returned no media for id %d", id)
	}
	return envelope.Data.Media, nil
}
