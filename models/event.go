package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventPageView         EventType = "page_view"
	EventClick            EventType = "click"
	EventScroll           EventType = "scroll"
	EventFormStart        EventType = "form_start"
	EventFormField        EventType = "form_field"
	EventFormSubmit       EventType = "form_submit"
	EventFormError        EventType = "form_error"
	EventVideoPlay        EventType = "video_play"
	EventVideoProgress    EventType = "video_progress"
	EventVideoComplete    EventType = "video_complete"
	EventCTAClick         EventType = "cta_click"
	EventOutboundLink     EventType = "outbound_link"
	EventDownload         EventType = "download"
	EventCopy             EventType = "copy"
	EventShare            EventType = "share"
	EventVisibilityChange EventType = "visibility_change"
	EventSessionEnd       EventType = "session_end"
)

type EventCategory string

const (
	CategoryNavigation EventCategory = "navigation"
	CategoryEngagement EventCategory = "engagement"
	CategoryConversion EventCategory = "conversion"
	CategoryVideo      EventCategory = "video"
	CategoryForm       EventCategory = "form"
	CategorySocial     EventCategory = "social"
)

// VisitorEvent is one discrete interaction within a session. Rows are
// append-only: intent points and classification flags are fixed at creation
// and never change afterwards.
type VisitorEvent struct {
	ID         string `json:"id"`
	SessionID  int64  `json:"sessionId"`
	PageViewID *int64 `json:"pageViewId,omitempty"`

	EventType     EventType       `json:"eventType"`
	EventCategory EventCategory   `json:"eventCategory"`
	EventData     json.RawMessage `json:"eventData,omitempty"`

	IntentPoints      int  `json:"intentPoints"`
	IsConversionEvent bool `json:"isConversionEvent"`
	IsEngagementEvent bool `json:"isEngagementEvent"`

	// OccurredAt is the client-reported timestamp, distinct from CreatedAt
	// (server insert time), so ordering survives network latency.
	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

var eventCategories = map[EventType]EventCategory{
	EventPageView:         CategoryNavigation,
	EventOutboundLink:     CategoryNavigation,
	EventVisibilityChange: CategoryNavigation,
	EventSessionEnd:       CategoryNavigation,
	EventClick:            CategoryEngagement,
	EventScroll:           CategoryEngagement,
	EventCopy:             CategoryEngagement,
	EventDownload:         CategoryEngagement,
	EventFormStart:        CategoryForm,
	EventFormField:        CategoryForm,
	EventFormError:        CategoryForm,
	EventFormSubmit:       CategoryConversion,
	EventCTAClick:         CategoryConversion,
	EventVideoPlay:        CategoryVideo,
	EventVideoProgress:    CategoryVideo,
	EventVideoComplete:    CategoryVideo,
	EventShare:            CategorySocial,
}

var conversionEvents = map[EventType]bool{
	EventFormSubmit: true,
	EventCTAClick:   true,
}

var engagementEvents = map[EventType]bool{
	EventClick:         true,
	EventScroll:        true,
	EventVideoPlay:     true,
	EventVideoComplete: true,
	EventFormStart:     true,
	EventFormField:     true,
	EventDownload:      true,
	EventShare:         true,
}

func ValidEventType(t EventType) bool {
	_, ok := eventCategories[t]
	return ok
}

func CategoryFor(t EventType) EventCategory {
	if c, ok := eventCategories[t]; ok {
		return c
	}
	return CategoryEngagement
}

func IsConversionEvent(t EventType) bool { return conversionEvents[t] }

func IsEngagementEvent(t EventType) bool { return engagementEvents[t] }
