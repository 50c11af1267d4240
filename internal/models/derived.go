package models

import "time"

// DerivedRate is the network throughput between two consecutive samples
type DerivedRate struct {
	TimeLabel     string    `json:"time"` // HH:MM in UTC
	ObservedAt    time.Time `json:"observed_at"`
	RxBytesPerSec float64   `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64   `json:"tx_bytes_per_sec"`
}

// Trend is the change of one metric since the previous sample
type Trend struct {
	PercentChange float64 `json:"percent_change"` // unrounded, always >= 0
	IsPositive    bool    `json:"is_positive"`
	Label         string  `json:"label"`
}

// Trends groups the per-metric trends shown on the status cards.
// A nil entry means no trend is available.
type Trends struct {
	CPU  *Trend `json:"cpu_percent,omitempty"`
	RAM  *Trend `json:"ram_percent,omitempty"`
	Disk *Trend `json:"disk_percent,omitempty"`
}
