package models

import (
	"strings"
	"time"
)

type PageType string

const (
	PageHome       PageType = "home"
	PageServices   PageType = "services"
	PagePortfolio  PageType = "portfolio"
	PageAbout      PageType = "about"
	PageContact    PageType = "contact"
	PageBlog       PageType = "blog"
	PagePricing    PageType = "pricing"
	PageIndustries PageType = "industries"
	PagePrivacy    PageType = "privacy"
	PageOther      PageType = "other"
)

// PageView is one page visit inside a session. Engagement counters are
// additive; scroll_depth_max only ever grows; read_content, interacted and
// bounced are one-way latches enforced by the store's UPDATE statements.
type PageView struct {
	ID        int64 `json:"id"`
	SessionID int64 `json:"sessionId"`

	URL         string   `json:"url"`
	Path        string   `json:"path"`
	PreviousURL string   `json:"previousUrl"`
	ExitURL     string   `json:"exitUrl"`
	PageType    PageType `json:"pageType"`

	TimeOnPageSeconds  int `json:"timeOnPageSeconds"`
	EngagedTimeSeconds int `json:"engagedTimeSeconds"`
	ScrollDepth        int `json:"scrollDepth"`
	ScrollDepthMax     int `json:"scrollDepthMax"`
	ScrollCount        int `json:"scrollCount"`
	ClickCount         int `json:"clickCount"`
	MouseMoveCount     int `json:"mouseMoveCount"`
	KeyPressCount      int `json:"keyPressCount"`

	ReadContent bool `json:"readContent"`
	Interacted  bool `json:"interacted"`
	Bounced     bool `json:"bounced"`
	IsExitPage  bool `json:"isExitPage"`

	EnteredAt time.Time  `json:"enteredAt"`
	ExitedAt  *time.Time `json:"exitedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// pageTypeKeywords is scanned in order; the first category whose keyword
// appears in the path wins. Keeping the ordering stable matters: a path can
// contain keywords from more than one category.
var pageTypeKeywords = []struct {
	pageType PageType
	keywords []string
}{
	{PageServices, []string{"services", "servicios"}},
	{PagePortfolio, []string{"portfolio", "portafolio", "work", "projects"}},
	{PageAbout, []string{"about", "nosotros"}},
	{PageContact, []string{"contact", "contacto"}},
	{PageBlog, []string{"blog"}},
	{PagePricing, []string{"pricing", "precios"}},
	{PageIndustries, []string{"industries", "industrias"}},
	{PagePrivacy, []string{"privacy", "privacidad"}},
}

// DeterminePageType classifies a URL path into a fixed page category.
// Total: every input maps to exactly one category, defaulting to "other".
func DeterminePageType(path string) PageType {
	p := strings.Trim(strings.ToLower(strings.TrimSpace(path)), "/")
	if p == "" || p == "es" {
		return PageHome
	}
	for _, entry := range pageTypeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(p, kw) {
				return entry.pageType
			}
		}
	}
	return PageOther
}
