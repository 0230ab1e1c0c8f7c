package main

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marmot-vision/marmot/internal/application"
	"github.com/marmot-vision/marmot/internal/detector"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/middleware"
)

func detectImageHandler(service *application.DetectionService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		file, _, err := c.Request.FormFile("image")
		if err != nil {
			responder.RespondBadRequest("image file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			responder.RespondBadRequest("failed to read image file")
			return
		}

		cmd := application.DetectImageCommand{ImageData: data}

		result, err := service.DetectImage(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func trackingHistoryHandler(service *application.DetectionService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		trackID, err := strconv.Atoi(c.Param("trackId"))
		if err != nil {
			responder.RespondBadRequest("trackId must be an integer")
			return
		}

		query := application.TrackingHistoryQuery{TrackID: trackID}

		history, err := service.GetTrackingHistory(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, history)
	}
}

func zoneAnalysisHandler(service *application.DetectionService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		minutes, _ := strconv.Atoi(c.DefaultQuery("minutes", "60"))

		query := application.ZoneAnalysisQuery{
			ZoneID:  c.Param("zoneId"),
			Minutes: minutes,
		}

		analysis, err := service.GetZoneAnalysis(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, analysis)
	}
}

func cleanupHandler(service *application.DetectionService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		hours, _ := strconv.Atoi(c.DefaultQuery("hoursToKeep", "24"))

		cmd := application.CleanupCommand{HoursToKeep: hours}

		result, err := service.Cleanup(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getDetectorSettingsHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		settings, err := service.GetDetectorSettings()
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, settings)
	}
}

func updateDetectorSettingsHandler(service *application.StreamService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Confidence float64 `json:"confidence" binding:"required,gt=0,lte=1"`
			Tracker    string  `json:"tracker" binding:"required,tracker"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		settings := detector.Settings{
			Confidence: req.Confidence,
			Tracker:    detector.Tracker(req.Tracker),
		}

		if err := service.UpdateDetectorSettings(settings); err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, settings)
	}
}
