package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marmot-vision/marmot/internal/application"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/middleware"
)

type streamZoneRequest struct {
	ZoneID string  `json:"zoneId" binding:"required"`
	Name   string  `json:"name"`
	XMin   float64 `json:"xMin"`
	YMin   float64 `json:"yMin"`
	XMax   float64 `json:"xMax" binding:"gtfield=XMin"`
	YMax   float64 `json:"yMax" binding:"gtfield=YMin"`
}

func toZoneConfigs(reqs []streamZoneRequest) []application.StreamZoneConfig {
	if reqs == nil {
		return nil
	}
	zones := make([]application.StreamZoneConfig, 0, len(reqs))
	for _, z := range reqs {
		zones = append(zones, application.StreamZoneConfig{
			ZoneID: z.ZoneID,
			Name:   z.Name,
			XMin:   z.XMin,
			YMin:   z.YMin,
			XMax:   z.XMax,
			YMax:   z.YMax,
		})
	}
	return zones
}

func createStreamHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			StreamID      string              `json:"streamId" binding:"required"`
			Name          string              `json:"name"`
			WorkstationID string              `json:"workstationId"`
			SourceType    string              `json:"sourceType" binding:"required,stream_type"`
			SourceURL     string              `json:"sourceUrl" binding:"required,source_url"`
			TargetFPS     int                 `json:"targetFps" binding:"omitempty,min=1,max=30"`
			AutoReconnect *bool               `json:"autoReconnect"`
			Zones         []streamZoneRequest `json:"zones" binding:"omitempty,dive"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		cmd := application.CreateStreamCommand{
			StreamID:      req.StreamID,
			Name:          req.Name,
			WorkstationID: req.WorkstationID,
			SourceType:    req.SourceType,
			SourceURL:     req.SourceURL,
			TargetFPS:     req.TargetFPS,
			AutoReconnect: req.AutoReconnect,
			Zones:         toZoneConfigs(req.Zones),
		}

		stream, err := service.CreateStream(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, stream)
	}
}

func listStreamsHandler(service *application.StreamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.ListStreams(c.Request.Context()))
	}
}

func getStreamHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetStreamQuery{StreamID: c.Param("streamId")}

		stream, err := service.GetStream(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, stream)
	}
}

func updateStreamHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name          *string             `json:"name"`
			TargetFPS     *int                `json:"targetFps" binding:"omitempty,min=1,max=30"`
			AutoReconnect *bool               `json:"autoReconnect"`
			Zones         []streamZoneRequest `json:"zones" binding:"omitempty,dive"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		cmd := application.UpdateStreamCommand{
			StreamID:      c.Param("streamId"),
			Name:          req.Name,
			TargetFPS:     req.TargetFPS,
			AutoReconnect: req.AutoReconnect,
			Zones:         toZoneConfigs(req.Zones),
		}

		stream, err := service.UpdateStream(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, stream)
	}
}

func deleteStreamHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.DeleteStreamCommand{StreamID: c.Param("streamId")}

		if err := service.DeleteStream(c.Request.Context(), cmd); err != nil {
			respondServiceError(responder, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func streamStatusHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetStreamQuery{StreamID: c.Param("streamId")}

		status, err := service.GetStreamStatus(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

func streamResultsHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

		query := application.StreamResultsQuery{
			StreamID: c.Param("streamId"),
			Limit:    limit,
		}

		results, err := service.GetStreamResults(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, results)
	}
}

func zoneEfficiencyHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		minutes, _ := strconv.Atoi(c.DefaultQuery("minutes", "60"))

		query := application.EfficiencyQuery{
			StreamID: c.Param("streamId"),
			ZoneID:   c.Param("zoneId"),
			Minutes:  minutes,
		}

		efficiency, err := service.GetZoneEfficiency(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, efficiency)
	}
}

func testStreamHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			SourceType string `json:"sourceType" binding:"required,stream_type"`
			SourceURL  string `json:"sourceUrl" binding:"required,source_url"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		cmd := application.TestStreamCommand{
			SourceType: req.SourceType,
			SourceURL:  req.SourceURL,
		}

		if err := service.TestStream(c.Request.Context(), cmd); err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
