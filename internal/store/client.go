// Package store is the client for the hosted sample table. It speaks the
// PostgREST dialect used by Supabase projects.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"statboard/internal/config"
	"statboard/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	restPrefix     = "/rest/v1/"
	orderColumn    = "created_at"
)

// ErrNoSamples is returned by GetLatest when the table has no rows yet.
var ErrNoSamples = errors.New("store: no samples")

// Client sends sample queries to the store over HTTP.
type Client struct {
	httpClient *http.Client
	tableURL   string
	apiKey     string
}

// NewClient constructs a Client from cfg. It returns an error if the URL or
// table is empty. When cfg.Timeout is zero or negative a 30 second timeout is
// used.
func NewClient(cfg config.StoreConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("store: URL is required")
	}
	if cfg.Table == "" {
		return nil, errors.New("store: table is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("store: parse URL: %w", err)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tableURL:   strings.TrimRight(cfg.URL, "/") + restPrefix + url.PathEscape(cfg.Table),
		apiKey:     cfg.APIKey,
	}, nil
}

// GetLatest returns the newest sample by creation time.
func (c *Client) GetLatest(ctx context.Context) (models.Sample, error) {
	rows, err := c.query(ctx, orderColumn+".desc", 1)
	if err != nil {
		return models.Sample{}, err
	}
	if len(rows) == 0 {
		return models.Sample{}, ErrNoSamples
	}
	return rows[0], nil
}

// GetHistory returns up to limit of the most recent samples, oldest first.
func (c *Client) GetHistory(ctx context.Context, limit int) ([]models.Sample, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("store: invalid history limit %d", limit)
	}
	rows, err := c.query(ctx, orderColumn+".desc", limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// Ping issues the cheapest query the table supports. It is used to measure
// round-trip latency.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.query(ctx, orderColumn+".desc", 1)
	return err
}

func (c *Client) query(ctx context.Context, order string, limit int) ([]models.Sample, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", order)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("store: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var rows []sampleRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("store: decode response: %w", err)
	}

	samples := make([]models.Sample, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSample()
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Endpoint extracts the hostname of the store URL and the project reference,
// which is the first label of the hostname.
func Endpoint(rawURL string) (host, project string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("store: parse URL: %w", err)
	}
	host = u.Hostname()
	if host == "" {
		return "", "", fmt.Errorf("store: URL %q has no host", rawURL)
	}
	project, _, _ = strings.Cut(host, ".")
	return host, project, nil
}
