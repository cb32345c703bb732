package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/store"
)

// TrackHandlers is the public beacon surface the client-side tracking
// script talks to. Beacons authenticate with the session token issued at
// session start; an unknown token gets a 404 with reinit=true so the
// client re-initializes instead of retrying.
type TrackHandlers struct {
	Sessions  *store.SessionStore
	PageViews *store.PageViewStore
	Events    *store.EventStore
	log       *logger.Logger
}

func NewTrackHandlers(sessions *store.SessionStore, pageViews *store.PageViewStore, events *store.EventStore, log *logger.Logger) *TrackHandlers {
	return &TrackHandlers{Sessions: sessions, PageViews: pageViews, Events: events, log: log.With("handlers", "track")}
}

type startSessionRequest struct {
	VisitorID   string `json:"visitor_id" binding:"required"`
	Referrer    string `json:"referrer"`
	LandingPage string `json:"landing_page"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
	DeviceType  string `json:"device_type"`
	Browser     string `json:"browser"`
	OS          string `json:"os"`
	Country     string `json:"country"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Locale      string `json:"locale"`
}

func (h *TrackHandlers) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.Sessions.Create(c.Request.Context(), store.CreateSessionInput{
		VisitorID:   req.VisitorID,
		Referrer:    req.Referrer,
		LandingPage: req.LandingPage,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		UTMTerm:     req.UTMTerm,
		UTMContent:  req.UTMContent,
		DeviceType:  req.DeviceType,
		Browser:     req.Browser,
		OS:          req.OS,
		Country:     req.Country,
		Region:      req.Region,
		City:        req.City,
		Locale:      req.Locale,
	})
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("failed to create session", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_uuid":  session.UUID,
		"session_token": session.SessionToken,
	})
}

// sessionForToken resolves the beacon's session and refreshes its
// last-activity timestamp. Writes the error response itself and returns
// nil when the caller should stop.
func (h *TrackHandlers) sessionForToken(c *gin.Context, token string) *models.VisitorSession {
	session, err := h.Sessions.GetByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session", "reinit": true})
			return nil
		}
		h.log.Error("failed to resolve session token", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve session"})
		return nil
	}
	if err := h.Sessions.Touch(c.Request.Context(), session.ID); err != nil {
		h.log.Warn("failed to touch session", "session", session.UUID, "err", err)
	}
	return session
}

type openPageViewRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	URL          string `json:"url"`
	Path         string `json:"path"`
	PreviousURL  string `json:"previous_url"`
}

func (h *TrackHandlers) OpenPageView(c *gin.Context) {
	var req openPageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	session := h.sessionForToken(c, req.SessionToken)
	if session == nil {
		return
	}

	pv, err := h.PageViews.Open(c.Request.Context(), session, store.OpenPageViewInput{
		URL:         req.URL,
		Path:        req.Path,
		PreviousURL: req.PreviousURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("failed to open page view", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record page view"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"page_view_id": pv.ID, "page_type": pv.PageType})
}

type engagementRequest struct {
	SessionToken        string `json:"session_token" binding:"required"`
	PageViewID          int64  `json:"page_view_id" binding:"required"`
	TimeDeltaSeconds    int    `json:"time_delta_seconds"`
	EngagedDeltaSeconds int    `json:"engaged_delta_seconds"`
	ScrollDepth         int    `json:"scroll_depth"`
	ScrollCount         int    `json:"scroll_count"`
	ClickCount          int    `json:"click_count"`
	MouseMoveCount      int    `json:"mouse_move_count"`
	KeyPressCount       int    `json:"key_press_count"`
}

func (h *TrackHandlers) UpdateEngagement(c *gin.Context) {
	var req engagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	session := h.sessionForToken(c, req.SessionToken)
	if session == nil {
		return
	}

	pv, err := h.PageViews.UpdateEngagement(c.Request.Context(), req.PageViewID, store.EngagementMetrics{
		TimeDeltaSeconds:    req.TimeDeltaSeconds,
		EngagedDeltaSeconds: req.EngagedDeltaSeconds,
		ScrollDepth:         req.ScrollDepth,
		ScrollCount:         req.ScrollCount,
		ClickCount:          req.ClickCount,
		MouseMoveCount:      req.MouseMoveCount,
		KeyPressCount:       req.KeyPressCount,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown page view"})
			return
		}
		h.log.Error("failed to update engagement", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update engagement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"read_content": pv.ReadContent, "scroll_depth_max": pv.ScrollDepthMax})
}

type exitPageViewRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	PageViewID   int64  `json:"page_view_id" binding:"required"`
	ExitURL      string `json:"exit_url"`
}

func (h *TrackHandlers) ExitPageView(c *gin.Context) {
	var req exitPageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	session := h.sessionForToken(c, req.SessionToken)
	if session == nil {
		return
	}

	pv, err := h.PageViews.MarkAsExit(c.Request.Context(), req.PageViewID, req.ExitURL)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown page view"})
			return
		}
		h.log.Error("failed to mark page view exit", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record exit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bounced": pv.Bounced, "time_on_page_seconds": pv.TimeOnPageSeconds})
}

type recordEventRequest struct {
	SessionToken string          `json:"session_token" binding:"required"`
	PageViewID   *int64          `json:"page_view_id"`
	EventType    string          `json:"event_type" binding:"required"`
	PageType     string          `json:"page_type"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Data         json.RawMessage `json:"data"`
}

func (h *TrackHandlers) RecordEvent(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	session := h.sessionForToken(c, req.SessionToken)
	if session == nil {
		return
	}

	ev, err := h.Events.Record(c.Request.Context(), session, store.RecordEventInput{
		PageViewID: req.PageViewID,
		EventType:  models.EventType(req.EventType),
		PageType:   models.PageType(req.PageType),
		OccurredAt: req.OccurredAt,
		EventData:  req.Data,
	})
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("failed to record event", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event_id": ev.ID, "intent_points": ev.IntentPoints})
}

type sessionTokenRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// MarkFormCompleted latches the session's completed_form flag and
// rescores. This is deliberately separate from the form_submit event: the
// event records the interaction, the flag records the business outcome.
func (h *TrackHandlers) MarkFormCompleted(c *gin.Context) {
	var req sessionTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	session := h.sessionForToken(c, req.SessionToken)
	if session == nil {
		return
	}

	if err := h.Sessions.SetEngagementFlags(c.Request.Context(), session.ID, store.EngagementFlags{CompletedForm: true}); err != nil {
		h.log.Error("failed to mark form completed", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark form completed"})
		return
	}
	if err := h.Events.Rescore(c.Request.Context(), session.ID); err != nil {
		h.log.Error("failed to rescore after form completion", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update intent score"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *TrackHandlers) EndSession(c *gin.Context) {
	var req sessionTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.Sessions.GetByToken(c.Request.Context(), req.SessionToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session", "reinit": true})
			return
		}
		h.log.Error("failed to resolve session token", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve session"})
		return
	}

	if err := h.Sessions.End(c.Request.Context(), session.ID); err != nil {
		h.log.Error("failed to end session", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}

	c.Status(http.StatusOK)
}
