package models

import "time"

// MetricKey names a percentage metric carried by a Sample
type MetricKey string

const (
	MetricCPU  MetricKey = "cpu_percent"
	MetricRAM  MetricKey = "ram_percent"
	MetricDisk MetricKey = "disk_percent"
)

// Sample represents one resource-usage observation written by the monitoring agent
type Sample struct {
	ID             int64     `json:"id"`
	ObservedAt     time.Time `json:"created_at"`
	CPUPercent     float64   `json:"cpu_percent"`
	RAMPercent     float64   `json:"ram_percent"`
	DiskPercent    float64   `json:"disk_percent"`
	ProxyActive    bool      `json:"proxy_active"`
	NetworkRxBytes int64     `json:"network_rx_bytes"` // cumulative
	NetworkTxBytes int64     `json:"network_tx_bytes"` // cumulative
}

// Metric returns the value of the named percentage metric
func (s Sample) Metric(key MetricKey) (float64, bool) {
	switch key {
	case MetricCPU:
		return s.CPUPercent, true
	case MetricRAM:
		return s.RAMPercent, true
	case MetricDisk:
		return s.DiskPercent, true
	default:
		return 0, false
	}
}
