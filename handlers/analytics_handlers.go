package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/logger"
	"sitepulse/api/store"
	"sitepulse/api/utils"
)

// AnalyticsHandlers serves the dashboard rollups. Session-derived stats
// come from Postgres; event time series and top paths come from the
// ClickHouse archive and return 503 when it is not configured.
type AnalyticsHandlers struct {
	Analytics *store.AnalyticsStore
	Archive   *store.EventArchive
	log       *logger.Logger
}

func NewAnalyticsHandlers(analytics *store.AnalyticsStore, archive *store.EventArchive, log *logger.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{Analytics: analytics, Archive: archive, log: log.With("handlers", "analytics")}
}

// parseWindow resolves the request's time window: explicit RFC3339
// start/end win, otherwise the period preset (24h/7d/30d/90d, default 7d).
// Writes the error response itself on bad input.
func (h *AnalyticsHandlers) parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	startParam := c.Query("start")
	endParam := c.Query("end")

	if startParam != "" || endParam != "" {
		start := time.Now().UTC().Add(-7 * 24 * time.Hour)
		end := time.Now().UTC()
		var err error
		if startParam != "" {
			start, err = time.Parse(time.RFC3339, startParam)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
				return time.Time{}, time.Time{}, false
			}
		}
		if endParam != "" {
			end, err = time.Parse(time.RFC3339, endParam)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
				return time.Time{}, time.Time{}, false
			}
		}
		return start, end, true
	}

	start, end, err := utils.PeriodWindow(c.Query("period"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *AnalyticsHandlers) Overview(c *gin.Context) {
	start, end, ok := h.parseWindow(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.Analytics.Overview(ctx, start, end)
	if err != nil {
		h.log.Error("failed to get overview stats", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve overview statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *AnalyticsHandlers) TrafficSources(c *gin.Context) {
	start, end, ok := h.parseWindow(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Analytics.TrafficSources(ctx, start, end)
	if err != nil {
		h.log.Error("failed to get traffic sources", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve traffic source statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *AnalyticsHandlers) IntentDistribution(c *gin.Context) {
	start, end, ok := h.parseWindow(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Analytics.IntentDistribution(ctx, start, end)
	if err != nil {
		h.log.Error("failed to get intent distribution", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve intent distribution"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *AnalyticsHandlers) DailySeries(c *gin.Context) {
	start, end, ok := h.parseWindow(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Analytics.DailySeries(ctx, start, end)
	if err != nil {
		h.log.Error("failed to get daily series", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve daily series"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *AnalyticsHandlers) EventCountsOverTime(c *gin.Context) {
	if h.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event archive is not configured"})
		return
	}

	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}

	start, end, ok := h.parseWindow(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Archive.EventCountsOverTime(ctx, interval, start, end, c.Query("eventType"))
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("failed to get event counts over time", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *AnalyticsHandlers) TopPaths(c *gin.Context) {
	if h.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event archive is not configured"})
		return
	}

	start, end, ok := h.parseWindow(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Archive.TopPaths(ctx, start, end, limit)
	if err != nil {
		h.log.Error("failed to get top paths", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top path statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}
