package models

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionIdle   SessionStatus = "idle"
	SessionEnded  SessionStatus = "ended"
)

type IntentLevel string

const (
	LevelCold      IntentLevel = "cold"
	LevelWarm      IntentLevel = "warm"
	LevelHot       IntentLevel = "hot"
	LevelQualified IntentLevel = "qualified"
)

type ReferrerType string

const (
	ReferrerDirect   ReferrerType = "direct"
	ReferrerOrganic  ReferrerType = "organic"
	ReferrerSocial   ReferrerType = "social"
	ReferrerPaid     ReferrerType = "paid"
	ReferrerEmail    ReferrerType = "email"
	ReferrerReferral ReferrerType = "referral"
)

// VisitorSession is one bounded visit by an anonymous visitor, from first
// page load until it goes idle or is explicitly ended. Counters are
// denormalized caches maintained by the write path, not derived on read.
type VisitorSession struct {
	ID           int64  `json:"id"`
	UUID         string `json:"uuid"`
	VisitorID    string `json:"visitorId"`
	SessionToken string `json:"-"`

	Referrer       string       `json:"referrer"`
	ReferrerDomain string       `json:"referrerDomain"`
	ReferrerType   ReferrerType `json:"referrerType"`
	LandingPage    string       `json:"landingPage"`
	UTMSource      string       `json:"utmSource"`
	UTMMedium      string       `json:"utmMedium"`
	UTMCampaign    string       `json:"utmCampaign"`
	UTMTerm        string       `json:"utmTerm"`
	UTMContent     string       `json:"utmContent"`

	DeviceType string `json:"deviceType"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	Country    string `json:"country"`
	Region     string `json:"region"`
	City       string `json:"city"`
	Locale     string `json:"locale"`

	PageViewsCount     int     `json:"pageViewsCount"`
	EventsCount        int     `json:"eventsCount"`
	TotalTimeSeconds   int     `json:"totalTimeSeconds"`
	EngagedTimeSeconds int     `json:"engagedTimeSeconds"`
	ScrollDepthAvg     float64 `json:"scrollDepthAvg"`
	ScrollDepthMax     int     `json:"scrollDepthMax"`

	IntentScore   float64         `json:"intentScore"`
	IntentLevel   IntentLevel     `json:"intentLevel"`
	IntentSignals json.RawMessage `json:"intentSignals,omitempty"`

	VisitedPricing   bool `json:"visitedPricing"`
	VisitedServices  bool `json:"visitedServices"`
	VisitedPortfolio bool `json:"visitedPortfolio"`
	VisitedContact   bool `json:"visitedContact"`
	StartedForm      bool `json:"startedForm"`
	CompletedForm    bool `json:"completedForm"`
	ClickedCTA       bool `json:"clickedCta"`
	WatchedVideo     bool `json:"watchedVideo"`

	Status         SessionStatus `json:"status"`
	LeadID         *int64        `json:"leadId,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	LastActivityAt time.Time     `json:"lastActivityAt"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

var searchDomains = []string{
	"google.", "bing.com", "yahoo.", "duckduckgo.com", "baidu.com", "yandex.",
}

var socialDomains = []string{
	"facebook.com", "fb.com", "instagram.com", "twitter.com", "x.com",
	"linkedin.com", "t.co", "tiktok.com", "youtube.com", "pinterest.",
	"reddit.com",
}

var paidMediums = []string{"cpc", "ppc", "paid", "cpm", "display", "retargeting"}

// ClassifyReferrer maps a raw referrer URL plus the utm_medium parameter to
// a traffic-source bucket. Paid mediums win over the referrer domain since
// ad clicks arrive with search/social referrers attached.
func ClassifyReferrer(referrer, utmMedium string) ReferrerType {
	medium := strings.ToLower(strings.TrimSpace(utmMedium))
	for _, m := range paidMediums {
		if medium == m {
			return ReferrerPaid
		}
	}
	if medium == "email" || medium == "newsletter" {
		return ReferrerEmail
	}

	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return ReferrerDirect
	}

	host := ReferrerDomainOf(referrer)
	if host == "" {
		return ReferrerDirect
	}
	for _, d := range searchDomains {
		if strings.Contains(host, d) {
			return ReferrerOrganic
		}
	}
	for _, d := range socialDomains {
		if strings.Contains(host, d) {
			return ReferrerSocial
		}
	}
	return ReferrerReferral
}

// ReferrerDomainOf extracts the bare host from a referrer URL, dropping any
// leading "www.". Returns "" when the URL has no parseable host.
func ReferrerDomainOf(referrer string) string {
	u, err := url.Parse(strings.TrimSpace(referrer))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
