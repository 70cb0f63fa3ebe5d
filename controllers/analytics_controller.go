package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fernwiki/fern/analytics"
)

// AnalyticsController exposes the view tracking endpoints consumed by the
// client-side tracker script. Wire shapes are raw JSON/text rather than the
// standard envelope; the tracker script depends on them.
type AnalyticsController struct {
	tracker *analytics.Analytics
}

// NewAnalyticsController creates an AnalyticsController.
func NewAnalyticsController(tracker *analytics.Analytics) *AnalyticsController {
	return &AnalyticsController{tracker: tracker}
}

type pageRequest struct {
	Page string `json:"page" binding:"required"`
}

// TrackPageView records one view for the page named in the body.
func (a *AnalyticsController) TrackPageView(ctx *gin.Context) {
	var req pageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing page"})
		return
	}
	if err := a.tracker.Track(req.Page); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to track page view"})
		return
	}
	ctx.String(http.StatusOK, "Page view tracked successfully")
}

// GetViewCount returns the current view counter for a page.
func (a *AnalyticsController) GetViewCount(ctx *gin.Context) {
	var req pageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing page"})
		return
	}
	count, err := a.tracker.ViewCount(req.Page)
	if err != nil {
		if errors.Is(err, analytics.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get view count"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"view_count": count})
}

// GetTimestamps returns per-day view counts for a page, ascending by day.
func (a *AnalyticsController) GetTimestamps(ctx *gin.Context) {
	var req pageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing page"})
		return
	}
	counts, err := a.tracker.DailyCounts(req.Page)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get timestamps"})
		return
	}
	ctx.JSON(http.StatusOK, counts)
}
