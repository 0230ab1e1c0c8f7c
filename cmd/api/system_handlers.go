package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marmot-vision/marmot/internal/application"
	"github.com/marmot-vision/marmot/internal/video"
)

var startedAt = time.Now()

func systemStatusHandler(service *application.StreamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := service.GetSystemStatistics(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"service":       serviceName,
			"status":        "running",
			"uptimeSeconds": int(time.Since(startedAt).Seconds()),
			"activeStreams": stats.Video.ActiveStreams,
			"maxStreams":    video.MaxStreams,
			"totalZones":    stats.Video.TotalZones,
			"maxTotalZones": video.MaxTotalZones,
		})
	}
}

func systemStatisticsHandler(service *application.StreamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.GetSystemStatistics(c.Request.Context()))
	}
}
