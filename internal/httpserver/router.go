package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"titan/internal/handler"
	"titan/pkg/metrics"
	"titan/pkg/otel"
	"titan/pkg/trace"
)

// Check reports whether one dependency is ready.
type Check func(ctx context.Context) error

func NewRouter(trackerHandler *handler.TrackerHandler, coachHandler *handler.CoachHandler, logger *zap.Logger, checks map[string]Check) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otel.GinMiddleware())

	// 请求 ID + 请求日志 + 延迟指标
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		opID := c.GetHeader(trace.HeaderName())
		if opID == "" {
			opID = trace.NewOpID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), opID))
		c.Header(trace.HeaderName(), opID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), latency)
		logger.Info("HTTP Request",
			zap.String("op_id", opID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/stats", trackerHandler.GetStats)
		api.GET("/habits", trackerHandler.ListHabits)
		api.POST("/habits", trackerHandler.CreateHabit)
		api.POST("/habits/:id/toggle", trackerHandler.ToggleHabit)
		api.DELETE("/habits/:id", trackerHandler.DeleteHabit)
		api.POST("/focus", trackerHandler.CompleteFocus)
		api.GET("/dashboard", trackerHandler.GetDashboard)
		api.GET("/coach", coachHandler.GetCoach)
	}
	return r
}
