package services

import (
	"sort"
	"sync"

	"statboard/internal/models"
)

// RateTimeLabel is the layout of DerivedRate.TimeLabel. Labels are always in
// UTC; viewers that want local time format ObservedAt themselves.
const RateTimeLabel = "15:04"

// DeriveRates turns cumulative network counters into per-second rates, one per
// consecutive pair of samples. The input is not modified.
//
// Pairs whose timestamps do not advance produce zero rates. A counter that
// goes backwards (the agent restarted) yields a negative rate, which is passed
// through unchanged.
func DeriveRates(samples []models.Sample) []models.DerivedRate {
	if len(samples) < 2 {
		return []models.DerivedRate{}
	}

	sorted := make([]models.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
	})

	rates := make([]models.DerivedRate, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]

		var rx, tx float64
		dt := curr.ObservedAt.Sub(prev.ObservedAt).Seconds()
		if dt > 0 {
			rx = float64(curr.NetworkRxBytes-prev.NetworkRxBytes) / dt
			tx = float64(curr.NetworkTxBytes-prev.NetworkTxBytes) / dt
		}

		rates = append(rates, models.DerivedRate{
			TimeLabel:     curr.ObservedAt.UTC().Format(RateTimeLabel),
			ObservedAt:    curr.ObservedAt,
			RxBytesPerSec: rx,
			TxBytesPerSec: tx,
		})
	}
	return rates
}

// rateCache memoizes DeriveRates for one history generation
type rateCache struct {
	mu    sync.Mutex
	valid bool
	gen   uint64
	rates []models.DerivedRate
}

// get returns the rates for history, recomputing only when gen changed
func (rc *rateCache) get(gen uint64, history []models.Sample) []models.DerivedRate {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.valid || rc.gen != gen {
		rc.rates = DeriveRates(history)
		rc.gen = gen
		rc.valid = true
	}
	return rc.rates
}
