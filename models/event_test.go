package models

import "testing"

func TestValidEventType(t *testing.T) {
	valid := []EventType{
		EventPageView, EventClick, EventScroll, EventFormStart, EventFormField,
		EventFormSubmit, EventFormError, EventVideoPlay, EventVideoProgress,
		EventVideoComplete, EventCTAClick, EventOutboundLink, EventDownload,
		EventCopy, EventShare, EventVisibilityChange, EventSessionEnd,
	}
	for _, et := range valid {
		if !ValidEventType(et) {
			t.Errorf("ValidEventType(%q) = false, want true", et)
		}
	}
	for _, et := range []EventType{"", "purchase", "PAGE_VIEW"} {
		if ValidEventType(et) {
			t.Errorf("ValidEventType(%q) = true, want false", et)
		}
	}
}

func TestConversionAndEngagementSets(t *testing.T) {
	wantConversion := map[EventType]bool{EventFormSubmit: true, EventCTAClick: true}
	wantEngagement := map[EventType]bool{
		EventClick: true, EventScroll: true, EventVideoPlay: true,
		EventVideoComplete: true, EventFormStart: true, EventFormField: true,
		EventDownload: true, EventShare: true,
	}

	all := []EventType{
		EventPageView, EventClick, EventScroll, EventFormStart, EventFormField,
		EventFormSubmit, EventFormError, EventVideoPlay, EventVideoProgress,
		EventVideoComplete, EventCTAClick, EventOutboundLink, EventDownload,
		EventCopy, EventShare, EventVisibilityChange, EventSessionEnd,
	}
	for _, et := range all {
		if got := IsConversionEvent(et); got != wantConversion[et] {
			t.Errorf("IsConversionEvent(%q) = %v, want %v", et, got, wantConversion[et])
		}
		if got := IsEngagementEvent(et); got != wantEngagement[et] {
			t.Errorf("IsEngagementEvent(%q) = %v, want %v", et, got, wantEngagement[et])
		}
	}
}

func TestCategoryFor(t *testing.T) {
	cases := map[EventType]EventCategory{
		EventPageView:      CategoryNavigation,
		EventClick:         CategoryEngagement,
		EventFormStart:     CategoryForm,
		EventFormSubmit:    CategoryConversion,
		EventCTAClick:      CategoryConversion,
		EventVideoPlay:     CategoryVideo,
		EventShare:         CategorySocial,
		EventSessionEnd:    CategoryNavigation,
		EventOutboundLink:  CategoryNavigation,
		EventVideoComplete: CategoryVideo,
	}
	for et, want := range cases {
		if got := CategoryFor(et); got != want {
			t.Errorf("CategoryFor(%q) = %q, want %q", et, got, want)
		}
	}
}
