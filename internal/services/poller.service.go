package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"statboard/internal/models"
	"statboard/internal/store"
)

const (
	// RefreshInterval is the period of the automatic refresh
	RefreshInterval = 60 * time.Second
	// HistoryLimit caps the history window
	HistoryLimit = 50
	// RefreshIndicatorDelay is how long the refreshing indicator stays up after a refresh ends
	RefreshIndicatorDelay = 1000 * time.Millisecond
)

// SampleSource is the read side of the sample store
type SampleSource interface {
	GetLatest(ctx context.Context) (models.Sample, error)
	GetHistory(ctx context.Context, limit int) ([]models.Sample, error)
}

// Poller owns the fetch lifecycle of the dashboard: the single in-flight
// refresh, the latest sample, the history window and the last error.
type Poller struct {
	source         SampleSource
	interval       time.Duration
	historyLimit   int
	indicatorDelay time.Duration
	now            func() time.Time
	logger         *slog.Logger

	inFlight atomic.Bool

	mu              sync.RWMutex
	current         *models.Sample
	history         []models.Sample
	historyGen      uint64
	errMsg          string
	refreshing      bool
	lastRefreshedAt time.Time
	indicatorTimer  *time.Timer
	stopped         bool
	listeners       []func(models.DashboardState)

	rates rateCache

	lifecycle sync.Mutex
	closed    bool
	runCtx    context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	manual    sync.WaitGroup
}

// PollerOption customizes a Poller
type PollerOption func(*Poller)

// WithInterval overrides the automatic refresh period
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithIndicatorDelay overrides how long the refreshing indicator lingers
func WithIndicatorDelay(d time.Duration) PollerOption {
	return func(p *Poller) { p.indicatorDelay = d }
}

// WithClock replaces the wall clock used for the last-refreshed bookkeeping
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// NewPoller creates a poller reading from source. It does nothing until
// Start or Refresh is called.
func NewPoller(source SampleSource, opts ...PollerOption) *Poller {
	p := &Poller{
		source:         source,
		interval:       RefreshInterval,
		historyLimit:   HistoryLimit,
		indicatorDelay: RefreshIndicatorDelay,
		now:            time.Now,
		logger:         slog.Default().With("component", "poller"),
		history:        []models.Sample{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers fn to receive a snapshot whenever the state changes.
// fn is called from the poller's goroutines and must not block.
func (p *Poller) Subscribe(fn func(models.DashboardState)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Start refreshes once immediately and then on every interval until ctx is
// done or Stop is called. Calling Start twice, or after Stop, has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.cancel != nil || p.closed {
		return
	}

	p.runCtx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(p.runCtx, p.done)

	p.logger.Info("Poller started", "interval", p.interval, "history_limit", p.historyLimit)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Stop cancels the schedule and any in-flight fetch and waits for them to
// return. Results arriving after Stop are discarded and no new refresh is
// started.
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	p.closed = true
	cancel, done := p.cancel, p.done
	p.lifecycle.Unlock()

	p.mu.Lock()
	p.stopped = true
	if p.indicatorTimer != nil {
		p.indicatorTimer.Stop()
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	p.manual.Wait()

	p.logger.Info("Poller stopped")
}

// Refresh fetches the latest sample and the history window concurrently and
// blocks until both return. It reports false, without touching any state,
// when another refresh is already in flight or the poller is stopped.
func (p *Poller) Refresh(ctx context.Context) bool {
	p.lifecycle.Lock()
	closed := p.closed
	p.lifecycle.Unlock()
	if closed {
		return false
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("Refresh skipped, fetch already in progress")
		return false
	}
	p.refresh(ctx)
	return true
}

// TriggerRefresh is the manual refresh action. It starts a refresh in the
// background under the same in-flight guard as Refresh.
func (p *Poller) TriggerRefresh() bool {
	// Add must not race with the Wait in Stop, so both happen under lifecycle
	p.lifecycle.Lock()
	if p.closed || !p.inFlight.CompareAndSwap(false, true) {
		p.lifecycle.Unlock()
		return false
	}
	ctx := p.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	p.manual.Add(1)
	p.lifecycle.Unlock()

	go func() {
		defer p.manual.Done()
		p.refresh(ctx)
	}()
	return true
}

// refresh runs one fetch cycle. The caller holds the in-flight flag.
func (p *Poller) refresh(ctx context.Context) {
	p.mu.Lock()
	p.refreshing = true
	if p.indicatorTimer != nil {
		p.indicatorTimer.Stop()
	}
	p.mu.Unlock()
	p.publish()

	var g errgroup.Group
	g.Go(func() error {
		p.fetchLatest(ctx)
		return nil
	})
	g.Go(func() error {
		p.fetchHistory(ctx, p.historyLimit)
		return nil
	})
	_ = g.Wait()

	p.mu.Lock()
	p.lastRefreshedAt = p.now()
	if !p.stopped {
		p.indicatorTimer = time.AfterFunc(p.indicatorDelay, p.clearIndicator)
	}
	p.mu.Unlock()

	p.inFlight.Store(false)
	p.publish()
}

// fetchLatest replaces the current sample. On failure the previous sample is
// kept and the error message is set.
func (p *Poller) fetchLatest(ctx context.Context) {
	sample, err := p.source.GetLatest(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	switch {
	case errors.Is(err, store.ErrNoSamples):
		p.logger.Info("No samples in store yet")
		p.errMsg = ""
	case err != nil:
		p.logger.Error("Error fetching latest stats", "err", err)
		p.errMsg = err.Error()
	default:
		p.current = &sample
		p.errMsg = ""
	}
}

// fetchHistory replaces the history window. Failures are logged only.
func (p *Poller) fetchHistory(ctx context.Context, limit int) {
	samples, err := p.source.GetHistory(ctx, limit)
	if err != nil {
		p.logger.Warn("Error fetching historical stats", "err", err)
		return
	}
	if samples == nil {
		samples = []models.Sample{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.history = samples
	p.historyGen++
}

func (p *Poller) clearIndicator() {
	p.mu.Lock()
	if p.stopped || !p.refreshing || p.inFlight.Load() {
		p.mu.Unlock()
		return
	}
	p.refreshing = false
	p.mu.Unlock()
	p.publish()
}

// InFlight reports whether a refresh is outstanding
func (p *Poller) InFlight() bool {
	return p.inFlight.Load()
}

// Snapshot returns the current dashboard state with derived rates and trends
func (p *Poller) Snapshot() models.DashboardState {
	p.mu.RLock()
	var current *models.Sample
	if p.current != nil {
		c := *p.current
		current = &c
	}
	history := p.history
	gen := p.historyGen
	errMsg := p.errMsg
	refreshing := p.refreshing
	lastRefreshedAt := p.lastRefreshedAt
	p.mu.RUnlock()

	loading := p.inFlight.Load()
	now := p.now()

	state := models.DashboardState{
		Current:    current,
		History:    history,
		Rates:      p.rates.get(gen, history),
		Trends:     CalculateTrends(current, history),
		Error:      errMsg,
		Loading:    loading,
		Refreshing: refreshing,
		NoData:     current == nil && !loading && !lastRefreshedAt.IsZero(),
		Timestamp:  now,
	}
	if current != nil {
		state.Network = &models.NetworkSummary{
			RxBytes:   current.NetworkRxBytes,
			TxBytes:   current.NetworkTxBytes,
			RxDisplay: FormatBytes(current.NetworkRxBytes),
			TxDisplay: FormatBytes(current.NetworkTxBytes),
		}
	}
	if !lastRefreshedAt.IsZero() {
		t := lastRefreshedAt
		state.LastRefreshedAt = &t
		state.LastRefreshedAgo = TimeAgo(now.Sub(lastRefreshedAt))
	}
	return state
}

func (p *Poller) publish() {
	p.mu.RLock()
	listeners := p.listeners
	p.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	state := p.Snapshot()
	for _, fn := range listeners {
		fn(state)
	}
}
