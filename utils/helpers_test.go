package utils

import (
	"testing"
	"time"
)

func TestIsValidInterval(t *testing.T) {
	for _, interval := range []string{"Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year"} {
		if !IsValidInterval(interval) {
			t.Errorf("IsValidInterval(%q) = false, want true", interval)
		}
	}
	for _, interval := range []string{"", "day", "Second", "Day; DROP TABLE visitor_events", "toStartOfDay"} {
		if IsValidInterval(interval) {
			t.Errorf("IsValidInterval(%q) = true, want false", interval)
		}
	}
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		period string
		days   int
	}{
		{"24h", 1},
		{"7d", 7},
		{"", 7},
		{"30d", 30},
		{"90d", 90},
	}
	for _, tc := range cases {
		start, end, err := PeriodWindow(tc.period, now)
		if err != nil {
			t.Fatalf("PeriodWindow(%q) returned error: %v", tc.period, err)
		}
		if !end.Equal(now) {
			t.Errorf("PeriodWindow(%q) end = %v, want %v", tc.period, end, now)
		}
		if want := now.Add(-time.Duration(tc.days) * 24 * time.Hour); !start.Equal(want) {
			t.Errorf("PeriodWindow(%q) start = %v, want %v", tc.period, start, want)
		}
	}
}

func TestPeriodWindowRejectsUnknown(t *testing.T) {
	for _, period := range []string{"1y", "week", "7", "all"} {
		if _, _, err := PeriodWindow(period, time.Now()); err == nil {
			t.Errorf("PeriodWindow(%q) accepted, want error", period)
		}
	}
}
