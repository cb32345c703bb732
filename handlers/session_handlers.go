package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/scoring"
	"sitepulse/api/store"
)

// SessionHandlers serves the admin session views: detail with a live
// intent breakdown, the hot list for sales staff, and lead linking.
type SessionHandlers struct {
	Sessions *store.SessionStore
	Events   *store.EventStore
	Hot      *store.HotStore
	log      *logger.Logger
}

func NewSessionHandlers(sessions *store.SessionStore, events *store.EventStore, hot *store.HotStore, log *logger.Logger) *SessionHandlers {
	return &SessionHandlers{Sessions: sessions, Events: events, Hot: hot, log: log.With("handlers", "sessions")}
}

// GetSession returns the session plus an on-demand scoring breakdown.
// The breakdown is recomputed here through the same engine that persisted
// the stored score, so the two always agree.
func (h *SessionHandlers) GetSession(c *gin.Context) {
	session, ok := h.sessionByUUID(c)
	if !ok {
		return
	}

	points, err := h.Events.SumPointsBySignal(c.Request.Context(), session.ID)
	if err != nil {
		h.log.Error("failed to sum event points", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute intent score"})
		return
	}
	result := scoring.Calculate(scoring.InputsFromSession(session, points))

	events, err := h.Events.ListBySession(c.Request.Context(), session.ID, 0)
	if err != nil {
		h.log.Error("failed to list events", "session", session.UUID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":     session,
		"intent":      result,
		"level_color": scoring.LevelColor(result.Level),
		"events":      events,
	})
}

// HotSessions lists the highest-intent active sessions, best first. Reads
// the Redis leaderboard when configured and falls back to Postgres.
func (h *SessionHandlers) HotSessions(c *gin.Context) {
	limit := 20
	if lp := c.Query("limit"); lp != "" {
		parsed, err := strconv.Atoi(lp)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	var sessions []*models.VisitorSession

	if h.Hot != nil {
		top, err := h.Hot.Top(c.Request.Context(), limit)
		if err != nil {
			h.log.Warn("hot leaderboard read failed, falling back to Postgres", "err", err)
		} else {
			for _, entry := range top {
				session, err := h.Sessions.GetByUUID(c.Request.Context(), entry.UUID)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						continue
					}
					h.log.Error("failed to load hot session", "uuid", entry.UUID, "err", err)
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load hot sessions"})
					return
				}
				sessions = append(sessions, session)
			}
			c.JSON(http.StatusOK, gin.H{"sessions": sessions})
			return
		}
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	sessions, err := h.Sessions.ListHot(c.Request.Context(), since, limit)
	if err != nil {
		h.log.Error("failed to list hot sessions", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load hot sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type linkLeadRequest struct {
	LeadID int64 `json:"lead_id" binding:"required"`
}

// LinkLead attaches a session to a lead after conversion. One-way; the
// link survives re-linking but is never cleared.
func (h *SessionHandlers) LinkLead(c *gin.Context) {
	session, ok := h.sessionByUUID(c)
	if !ok {
		return
	}

	var req linkLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.Sessions.LinkToLead(c.Request.Context(), session.ID, req.LeadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.log.Error("failed to link lead", "session", session.UUID, "lead", req.LeadID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link lead"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *SessionHandlers) sessionByUUID(c *gin.Context) (*models.VisitorSession, bool) {
	session, err := h.Sessions.GetByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return nil, false
		}
		h.log.Error("failed to get session", "uuid", c.Param("uuid"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return nil, false
	}
	return session, true
}
