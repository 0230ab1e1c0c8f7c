package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marmot-vision/marmot/internal/application"
	"github.com/marmot-vision/marmot/pkg/errors"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/middleware"
)

func respondServiceError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		responder.RespondWithAppError(appErr)
	} else {
		responder.RespondInternalError(err)
	}
}

func createWorkstationHandler(service *application.WorkstationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name        string         `json:"name" binding:"required"`
			Description string         `json:"description"`
			SourceType  string         `json:"videoSourceType" binding:"omitempty,stream_type"`
			SourceURL   string         `json:"videoSourceUrl" binding:"omitempty,source_url"`
			VideoConfig map[string]any `json:"videoConfig"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		cmd := application.CreateWorkstationCommand{
			Name:        req.Name,
			Description: req.Description,
			SourceType:  req.SourceType,
			SourceURL:   req.SourceURL,
			VideoConfig: req.VideoConfig,
		}

		workstation, err := service.CreateWorkstation(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, workstation)
	}
}

func listWorkstationsHandler(service *application.WorkstationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		query := application.ListWorkstationsQuery{Skip: skip, Limit: limit}

		workstations, err := service.ListWorkstations(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, workstations)
	}
}

func getWorkstationHandler(service *application.WorkstationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetWorkstationQuery{WorkstationID: c.Param("workstationId")}

		workstation, err := service.GetWorkstation(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, workstation)
	}
}

func updateWorkstationHandler(service *application.WorkstationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name        *string        `json:"name"`
			Description *string        `json:"description"`
			SourceType  *string        `json:"videoSourceType" binding:"omitempty,stream_type"`
			SourceURL   *string        `json:"videoSourceUrl" binding:"omitempty,source_url"`
			VideoConfig map[string]any `json:"videoConfig"`
			IsActive    *bool          `json:"isActive"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationErrorFormatter(err))
			return
		}

		cmd := application.UpdateWorkstationCommand{
			WorkstationID: c.Param("workstationId"),
			Name:          req.Name,
			Description:   req.Description,
			SourceType:    req.SourceType,
			SourceURL:     req.SourceURL,
			VideoConfig:   req.VideoConfig,
			IsActive:      req.IsActive,
		}

		workstation, err := service.UpdateWorkstation(c.Request.Context(), cmd)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, workstation)
	}
}

func deleteWorkstationHandler(service *application.WorkstationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.DeleteWorkstationCommand{WorkstationID: c.Param("workstationId")}

		if err := service.DeleteWorkstation(c.Request.Context(), cmd); err != nil {
			respondServiceError(responder, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func workstationStatusHandler(service *application.WorkstationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetWorkstationQuery{WorkstationID: c.Param("workstationId")}

		status, err := service.GetWorkstationStatus(c.Request.Context(), query)
		if err != nil {
			respondServiceError(responder, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}
