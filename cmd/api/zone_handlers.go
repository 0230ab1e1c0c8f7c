package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marmot-vision/marmot/internal/application"
	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/middleware"
)

func toPoints(coordinates [][]float64) ([]domain.Point, bool) {
	points := make([]domain.Point, 0, len(coordinates))
	for _, pair := range coordinates {
		if len(pair) != 2 {
			return nil, false
		}
		points = append(points, domain.Point{X: pair[0], Y: pair[1]})
	}
	return points, true
}

func createZoneHandler(service *application.ZoneService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name          string      `json:"name" binding:"required"`
			WorkstationID string      `json:"workstationId" binding:"required"`
			Coordinates   [][]float64 `json:"coordinates" binding:"required,min=3"`
			Color         string      `json:"color" binding:"omitempty,hex_color"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		points, ok := toPoints(req.Coordinates)
		if !ok {
			responder.RespondBadRequest("coordinates must be [x, y] pairs")
			return
		}

		cmd := application.CreateZoneCommand{
			Name:          req.Name,
			WorkstationID: req.WorkstationID,
			Points:        points,
			Color:         req.Color,
		}

		zone, err := service.CreateZone(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, zone)
	}
}

func listZonesHandler(service *application.ZoneService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		query := application.ListZonesQuery{
			WorkstationID: c.Query("workstationId"),
			Skip:          skip,
			Limit:         limit,
		}

		zones, err := service.ListZones(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, zones)
	}
}

func getZoneHandler(service *application.ZoneService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetZoneQuery{ZoneID: c.Param("zoneId")}

		zone, err := service.GetZone(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, zone)
	}
}

func updateZoneHandler(service *application.ZoneService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name        *string     `json:"name"`
			Coordinates [][]float64 `json:"coordinates" binding:"omitempty,min=3"`
			Color       *string     `json:"color" binding:"omitempty,hex_color"`
			IsActive    *bool       `json:"isActive"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		var points []domain.Point
		if req.Coordinates != nil {
			var ok bool
			points, ok = toPoints(req.Coordinates)
			if !ok {
				responder.RespondBadRequest("coordinates must be [x, y] pairs")
				return
			}
		}

		cmd := application.UpdateZoneCommand{
			ZoneID:   c.Param("zoneId"),
			Name:     req.Name,
			Points:   points,
			Color:    req.Color,
			IsActive: req.IsActive,
		}

		zone, err := service.UpdateZone(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, zone)
	}
}

func deleteZoneHandler(service *application.ZoneService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.DeleteZoneCommand{ZoneID: c.Param("zoneId")}

		if err := service.DeleteZone(c.Request.Context(), cmd); err != nil {
			respondServiceError(responder, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func zoneStatusHandler(service *application.ZoneService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetZoneQuery{ZoneID: c.Param("zoneId")}

		status, err := service.GetZoneStatus(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}
