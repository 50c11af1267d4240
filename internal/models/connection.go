package models

import "time"

// ConnectionStatus reports reachability of the sample store
type ConnectionStatus struct {
	Status       string    `json:"status"` // "online" or "offline"
	Online       bool      `json:"online"`
	LatencyMs    int64     `json:"latency_ms,omitempty"`
	LatencyClass string    `json:"latency_class,omitempty"` // good, fair, poor
	Host         string    `json:"host,omitempty"`
	Project      string    `json:"project,omitempty"`
	Error        string    `json:"error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}
