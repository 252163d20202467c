package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"titan/internal/model"
	"titan/internal/service/tracker"
)

const defaultFocusMinutes = 25

type TrackerHandler struct {
	tracker *tracker.Tracker
	logger  *zap.Logger
}

func NewTrackerHandler(t *tracker.Tracker, logger *zap.Logger) *TrackerHandler {
	return &TrackerHandler{tracker: t, logger: logger}
}

func (h *TrackerHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.tracker.Stats()})
}

func (h *TrackerHandler) ListHabits(c *gin.Context) {
	habits := h.tracker.Habits()
	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

type createHabitRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
}

func (h *TrackerHandler) CreateHabit(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "CreateHabit", fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		writeError(c, h.logger, "CreateHabit", err)
		return
	}

	habit, err := h.tracker.AddHabit(c.Request.Context(), req.Name, category)
	if err != nil {
		writeError(c, h.logger, "CreateHabit", err)
		return
	}
	h.logger.Info("CreateHabit: success", zap.String("habit_id", habit.ID))
	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

func (h *TrackerHandler) ToggleHabit(c *gin.Context) {
	id := c.Param("id")
	res, err := h.tracker.ToggleHabit(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "ToggleHabit", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TrackerHandler) DeleteHabit(c *gin.Context) {
	id := c.Param("id")
	if err := h.tracker.RemoveHabit(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, "DeleteHabit", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type focusRequest struct {
	Minutes *int `json:"minutes"`
}

func (h *TrackerHandler) CompleteFocus(c *gin.Context) {
	var req focusRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, h.logger, "CompleteFocus", fmt.Errorf("%w: %v", model.ErrValidation, err))
			return
		}
	}
	minutes := defaultFocusMinutes
	if req.Minutes != nil {
		minutes = *req.Minutes
	}

	stats, err := h.tracker.CompleteFocusSession(c.Request.Context(), minutes)
	if err != nil {
		writeError(c, h.logger, "CompleteFocus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "minutes": minutes})
}

func (h *TrackerHandler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Dashboard())
}
