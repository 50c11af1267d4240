package store

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"statboard/internal/models"
)

// sampleRow is the JSON shape of one server_stats row.
type sampleRow struct {
	ID             int64   `json:"id"`
	CreatedAt      string  `json:"created_at"`
	CPUPercent     float64 `json:"cpu_percent"`
	RAMPercent     float64 `json:"ram_percent"`
	DiskPercent    float64 `json:"disk_percent"`
	ProxyActive    bool    `json:"proxy_active"`
	NetworkRxBytes int64   `json:"network_rx_bytes"`
	NetworkTxBytes int64   `json:"network_tx_bytes"`
}

func (r sampleRow) toSample() (models.Sample, error) {
	observedAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return models.Sample{}, fmt.Errorf("store: sample %d: %w", r.ID, err)
	}
	return models.Sample{
		ID:             r.ID,
		ObservedAt:     observedAt,
		CPUPercent:     r.CPUPercent,
		RAMPercent:     r.RAMPercent,
		DiskPercent:    r.DiskPercent,
		ProxyActive:    r.ProxyActive,
		NetworkRxBytes: r.NetworkRxBytes,
		NetworkTxBytes: r.NetworkTxBytes,
	}, nil
}

// timestamp layouts accepted for created_at, tried in order. Postgres
// "timestamp without time zone" columns serialize without an offset and are
// read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid created_at %q", s)
}

// APIError is an error response from the store.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("store: authentication failed (HTTP 401): %s", e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("store: %s (HTTP %d, code %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("store: %s (HTTP %d)", e.Message, e.StatusCode)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
