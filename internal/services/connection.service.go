package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"statboard/internal/models"
)

// ProbeInterval is the period of the connectivity check
const ProbeInterval = 30 * time.Second

// Latency thresholds for ConnectionStatus.LatencyClass
const (
	goodLatency = 100 * time.Millisecond
	fairLatency = 300 * time.Millisecond
)

// Pinger issues a lightweight query against the store
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionProbe tracks reachability and round-trip latency of the store.
// It runs on its own schedule, independent of the Poller.
type ConnectionProbe struct {
	pinger   Pinger
	host     string
	project  string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	status    models.ConnectionStatus
	listeners []func(models.ConnectionStatus)

	checkMu sync.Mutex

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewConnectionProbe creates a probe for the store at host. project is the
// display name of the store project. interval <= 0 selects ProbeInterval.
func NewConnectionProbe(pinger Pinger, host, project string, interval time.Duration) *ConnectionProbe {
	if interval <= 0 {
		interval = ProbeInterval
	}
	return &ConnectionProbe{
		pinger:   pinger,
		host:     host,
		project:  project,
		interval: interval,
		logger:   slog.Default().With("component", "probe"),
		status: models.ConnectionStatus{
			Status:  "offline",
			Host:    host,
			Project: project,
		},
	}
}

// Subscribe registers fn to receive every new status. fn must not block.
func (cp *ConnectionProbe) Subscribe(fn func(models.ConnectionStatus)) {
	cp.mu.Lock()
	cp.listeners = append(cp.listeners, fn)
	cp.mu.Unlock()
}

// Status returns the result of the last check
func (cp *ConnectionProbe) Status() models.ConnectionStatus {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.status
}

// Check pings the store once and records the outcome. Concurrent checks are
// serialized.
func (cp *ConnectionProbe) Check(ctx context.Context) models.ConnectionStatus {
	cp.checkMu.Lock()
	defer cp.checkMu.Unlock()

	start := time.Now()
	err := cp.pinger.Ping(ctx)
	elapsed := time.Since(start)

	cp.mu.Lock()
	status := cp.status
	status.CheckedAt = time.Now()
	if err != nil {
		cp.logger.Warn("Connection check failed", "host", cp.host, "err", err)
		status.Status = "offline"
		status.Online = false
		status.Error = err.Error()
	} else {
		status.Status = "online"
		status.Online = true
		status.Error = ""
		status.LatencyMs = elapsed.Round(time.Millisecond).Milliseconds()
		status.LatencyClass = LatencyClass(elapsed)
	}
	cp.status = status
	listeners := cp.listeners
	cp.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
	return status
}

// LatencyClass buckets a round-trip time as good, fair or poor
func LatencyClass(d time.Duration) string {
	switch {
	case d < goodLatency:
		return "good"
	case d < fairLatency:
		return "fair"
	default:
		return "poor"
	}
}

// Start checks immediately and then on every interval until Stop
func (cp *ConnectionProbe) Start(ctx context.Context) {
	cp.lifecycle.Lock()
	defer cp.lifecycle.Unlock()
	if cp.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	cp.cancel = cancel
	cp.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		cp.Check(runCtx)

		ticker := time.NewTicker(cp.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				cp.Check(runCtx)
			}
		}
	}(cp.done)

	cp.logger.Info("Connection probe started", "host", cp.host, "interval", cp.interval)
}

// Stop ends the schedule and waits for an in-flight check to return
func (cp *ConnectionProbe) Stop() {
	cp.lifecycle.Lock()
	cancel, done := cp.cancel, cp.done
	cp.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
