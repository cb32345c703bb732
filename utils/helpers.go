package utils

import (
	"fmt"
	"time"
)

// IsValidInterval guards the interval name interpolated into ClickHouse
// toStartOf* bucket functions.
func IsValidInterval(interval string) bool {
	switch interval {
	case "Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year":
		return true
	default:
		return false
	}
}

// PeriodWindow resolves a dashboard period preset to a [start, end] window
// ending now. Empty period defaults to 7 days.
func PeriodWindow(period string, now time.Time) (time.Time, time.Time, error) {
	var d time.Duration
	switch period {
	case "24h":
		d = 24 * time.Hour
	case "7d", "":
		d = 7 * 24 * time.Hour
	case "30d":
		d = 30 * 24 * time.Hour
	case "90d":
		d = 90 * 24 * time.Hour
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q (want 24h, 7d, 30d or 90d)", period)
	}
	end := now.UTC()
	return end.Add(-d), end, nil
}
