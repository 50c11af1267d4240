package services

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with 1024-based units and at most two decimals
func FormatBytes(b int64) string {
	if b == 0 {
		return "0 Bytes"
	}

	sign := ""
	v := float64(b)
	if v < 0 {
		sign = "-"
		v = -v
	}

	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	scaled := math.Round(v*100) / 100
	return sign + strconv.FormatFloat(scaled, 'f', -1, 64) + " " + byteUnits[i]
}

// TimeAgo humanizes an elapsed duration for the "last updated" label
func TimeAgo(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%d seconds ago", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return plural(minutes, "minute") + " ago"
	}
	hours := minutes / 60
	if hours < 24 {
		return plural(hours, "hour") + " ago"
	}
	return plural(hours/24, "day") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
