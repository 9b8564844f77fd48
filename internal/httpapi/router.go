package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

type Processor interface {
	Process(ctx context.Context, asset types.MediaAsset) (types.PipelineResult, error)
}

type HistorySource interface {
	GetHistory(ctx context.Context) []types.HistoryEntry
}

func NewRouter(processor Processor, history HistorySource, log *logger.Logger) http.Handler {
	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())

	api := &API{
		processor: processor,
		history:   history,
		log:       log.Component("httpapi"),
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	api.registerRoutes(v1)

	return r
}

// requestLogger stamps every request with an id and logs its outcome.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := logger.RequestID(c.Request)
		c.Request.Header.Set(logger.RequestIDHeader, id)
		c.Header(logger.RequestIDHeader, id)

		start := time.Now()
		c.Next()

		entry := log.WithRequest(c.Request).
			WithField("status", c.Writer.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request finished")
			return
		}
		entry.Info("request finished")
	}
}
