package scoring

import "sitepulse/api/models"

// Base intent points per event type. Event types absent from the table
// contribute 0. Changing any value here is a behavior change, not a bug
// fix: stored events carry the points that were current when recorded.
var eventPoints = map[models.EventType]int{
	models.EventPageView:      1,
	models.EventClick:         2,
	models.EventScroll:        1,
	models.EventFormStart:     15,
	models.EventFormField:     3,
	models.EventFormSubmit:    50,
	models.EventVideoPlay:     5,
	models.EventVideoProgress: 3,
	models.EventVideoComplete: 10,
	models.EventCTAClick:      20,
	models.EventOutboundLink:  2,
	models.EventDownload:      10,
	models.EventShare:         8,
}

// Page-type bonus applied on top of the base point value, for page_view
// events only. High-intent pages are worth more than the view itself.
var pageTypeBonus = map[models.PageType]int{
	models.PagePricing:   10,
	models.PageContact:   8,
	models.PageServices:  5,
	models.PagePortfolio: 4,
}

// EventPoints returns the immutable point value an event of the given type
// carries. pageType is only consulted for page_view events.
func EventPoints(t models.EventType, pageType models.PageType) int {
	pts := eventPoints[t]
	if t == models.EventPageView {
		pts += pageTypeBonus[pageType]
	}
	return pts
}

// Session flag bonuses: each sticky engagement flag contributes its bonus
// exactly once, no matter how many times the underlying behavior recurred.
const (
	BonusVisitedPricing   = 10
	BonusVisitedContact   = 8
	BonusVisitedServices  = 5
	BonusVisitedPortfolio = 4
	BonusStartedForm      = 15
	BonusCompletedForm    = 30
	BonusClickedCTA       = 20
	BonusWatchedVideo     = 10
)

// Thresholds are the lower bounds of the warm, hot and qualified bands.
// They partition [0,100]: cold is everything below Warm. The qualified
// band additionally requires the completed_form gate, see Classify.
type Thresholds struct {
	Warm      float64
	Hot       float64
	Qualified float64
}

var DefaultThresholds = Thresholds{Warm: 25, Hot: 50, Qualified: 80}

var levelColors = map[models.IntentLevel]string{
	models.LevelCold:      "gray",
	models.LevelWarm:      "yellow",
	models.LevelHot:       "orange",
	models.LevelQualified: "green",
}

// LevelColor is a presentation-only lookup used by the admin UI.
func LevelColor(level models.IntentLevel) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return "gray"
}
