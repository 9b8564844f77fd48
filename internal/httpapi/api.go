package httpapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"audio-insights-go/internal/analytics"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type API struct {
	processor Processor
	history   HistorySource
	log       *logger.Logger
}

func (api *API) registerRoutes(r *gin.RouterGroup) {
	r.POST("/process", api.process)
	r.GET("/history", api.listHistory)
	r.GET("/analytics/summary", api.summary)
	r.GET("/analytics/export.xlsx", api.export)
}

func (api *API) process(c *gin.Context) {
	var payload struct {
		MediaRef string `json:"mediaRef" binding:"required"`
		Retain   bool   `json:"retain"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.MediaRef) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mediaRef is required"})
		return
	}

	res, err := api.processor.Process(c.Request.Context(), types.MediaAsset{Ref: payload.MediaRef, Retain: payload.Retain})
	if err != nil {
		api.log.WithError(err).WithField("media_ref", payload.MediaRef).Warn("process failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (api *API) listHistory(c *gin.Context) {
	c.JSON(http.StatusOK, api.history.GetHistory(c.Request.Context()))
}

func (api *API) summary(c *gin.Context) {
	s := analytics.Summarize(api.history.GetHistory(c.Request.Context()))
	c.JSON(http.StatusOK, gin.H{
		"summary": s,
		"insight": analytics.Insight(s),
	})
}

func (api *API) export(c *gin.Context) {
	var buf bytes.Buffer
	if err := analytics.ExportXLSX(api.history.GetHistory(c.Request.Context()), &buf); err != nil {
		api.log.WithError(err).Error("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="history.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
