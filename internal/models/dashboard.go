package models

import "time"

// NetworkSummary holds the cumulative network counters of the latest sample
type NetworkSummary struct {
	RxBytes   int64  `json:"rx_bytes"`
	TxBytes   int64  `json:"tx_bytes"`
	RxDisplay string `json:"rx_display"`
	TxDisplay string `json:"tx_display"`
}

// DashboardState is everything the dashboard view renders
type DashboardState struct {
	Current          *Sample         `json:"current"`
	Network          *NetworkSummary `json:"network,omitempty"`
	History          []Sample        `json:"history"`
	Rates            []DerivedRate   `json:"rates"`
	Trends           Trends          `json:"trends"`
	Error            string          `json:"error,omitempty"`
	Loading          bool            `json:"loading"`
	Refreshing       bool            `json:"refreshing"`
	NoData           bool            `json:"no_data"`
	LastRefreshedAt  *time.Time      `json:"last_refreshed_at,omitempty"`
	LastRefreshedAgo string          `json:"last_refreshed_ago,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}
