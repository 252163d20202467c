package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"titan/internal/clock"
	"titan/internal/coach"
	"titan/internal/service/tracker"
)

type CoachHandler struct {
	advisor *coach.Advisor
	tracker *tracker.Tracker
	clock   clock.Provider
	logger  *zap.Logger
}

func NewCoachHandler(advisor *coach.Advisor, t *tracker.Tracker, clk clock.Provider, logger *zap.Logger) *CoachHandler {
	return &CoachHandler{advisor: advisor, tracker: t, clock: clk, logger: logger}
}

// GetCoach returns the insight, plus the weekly review with ?review=true.
func (h *CoachHandler) GetCoach(c *gin.Context) {
	ctx := c.Request.Context()
	snap := h.tracker.Snapshot()

	resp := gin.H{
		"insight": h.advisor.Insight(ctx, h.tracker.UserID(), snap.Stats, snap.Habits),
	}
	if c.Query("review") == "true" {
		history := coach.History(snap.Habits, clock.LastDays(h.clock.Now(), 7))
		resp["review"] = h.advisor.WeeklyReview(ctx, history)
	}
	c.JSON(http.StatusOK, resp)
}
