package scoring

import (
	"testing"

	"sitepulse/api/models"
)

func TestEventPointsTable(t *testing.T) {
	cases := []struct {
		eventType models.EventType
		pageType  models.PageType
		want      int
	}{
		{models.EventPageView, "", 1},
		{models.EventClick, "", 2},
		{models.EventScroll, "", 1},
		{models.EventFormStart, "", 15},
		{models.EventFormField, "", 3},
		{models.EventFormSubmit, "", 50},
		{models.EventVideoPlay, "", 5},
		{models.EventVideoProgress, "", 3},
		{models.EventVideoComplete, "", 10},
		{models.EventCTAClick, "", 20},
		{models.EventOutboundLink, "", 2},
		{models.EventDownload, "", 10},
		{models.EventShare, "", 8},
		{models.EventFormError, "", 0},
		{models.EventCopy, "", 0},
		{models.EventVisibilityChange, "", 0},
		{models.EventSessionEnd, "", 0},
	}
	for _, tc := range cases {
		if got := EventPoints(tc.eventType, tc.pageType); got != tc.want {
			t.Errorf("EventPoints(%s) = %d, want %d", tc.eventType, got, tc.want)
		}
	}
}

func TestPageViewPageTypeBonus(t *testing.T) {
	cases := []struct {
		pageType models.PageType
		want     int
	}{
		{models.PagePricing, 11},
		{models.PageContact, 9},
		{models.PageServices, 6},
		{models.PagePortfolio, 5},
		{models.PageHome, 1},
		{models.PageBlog, 1},
	}
	for _, tc := range cases {
		if got := EventPoints(models.EventPageView, tc.pageType); got != tc.want {
			t.Errorf("EventPoints(page_view, %s) = %d, want %d", tc.pageType, got, tc.want)
		}
	}

	// The bonus applies to page_view events only.
	if got := EventPoints(models.EventClick, models.PagePricing); got != 2 {
		t.Errorf("EventPoints(click, pricing) = %d, want 2", got)
	}
}

func TestLevelColor(t *testing.T) {
	cases := map[models.IntentLevel]string{
		models.LevelCold:      "gray",
		models.LevelWarm:      "yellow",
		models.LevelHot:       "orange",
		models.LevelQualified: "green",
		models.IntentLevel(""): "gray",
	}
	for level, want := range cases {
		if got := LevelColor(level); got != want {
			t.Errorf("LevelColor(%q) = %q, want %q", level, got, want)
		}
	}
}
