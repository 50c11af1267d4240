package services

import (
	"math"

	"statboard/internal/models"
)

// TrendLabel describes the comparison window of every trend
const TrendLabel = "since last check"

// CalculateTrend compares current against the second-to-last entry of history
// for the given metric. It reports false when there is no trend to show: fewer
// than two history entries, an unknown metric, or a previous value of zero.
func CalculateTrend(current float64, key models.MetricKey, history []models.Sample) (models.Trend, bool) {
	if len(history) < 2 {
		return models.Trend{}, false
	}
	previous, ok := history[len(history)-2].Metric(key)
	if !ok || previous == 0 {
		return models.Trend{}, false
	}

	delta := current - previous
	return models.Trend{
		PercentChange: math.Abs(delta/previous) * 100,
		IsPositive:    delta >= 0,
		Label:         TrendLabel,
	}, true
}

// CalculateTrends computes the card trends for the latest sample
func CalculateTrends(current *models.Sample, history []models.Sample) models.Trends {
	var trends models.Trends
	if current == nil {
		return trends
	}
	trends.CPU = trendPtr(CalculateTrend(current.CPUPercent, models.MetricCPU, history))
	trends.RAM = trendPtr(CalculateTrend(current.RAMPercent, models.MetricRAM, history))
	trends.Disk = trendPtr(CalculateTrend(current.DiskPercent, models.MetricDisk, history))
	return trends
}

func trendPtr(t models.Trend, ok bool) *models.Trend {
	if !ok {
		return nil
	}
	return &t
}
