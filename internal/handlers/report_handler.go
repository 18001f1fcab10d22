package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/middleware"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

func SubmitReport(rs *services.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := eventIDParam(c)
		if !ok {
			return
		}
		var in services.ReportInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid report payload: "+err.Error()))
			return
		}

		outcome, err := rs.SubmitReport(c.Request.Context(), middleware.ReportCache(c), middleware.Identity(c), id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		// The count is not exposed to reporters.
		c.JSON(http.StatusCreated, models.SuccessResponse(gin.H{
			"event_id": id,
			"reported": true,
			"pending":  outcome.Status == models.StatusUnderReview,
		}, "report submitted"))
	}
}

func HasReported(rs *services.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := eventIDParam(c)
		if !ok {
			return
		}
		var userID uuid.UUID
		if who := middleware.Identity(c); who != nil {
			userID = who.ID
		}
		reported, err := rs.HasReported(c.Request.Context(), middleware.ReportCache(c), userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"event_id": id, "reported": reported}, ""))
	}
}

func FetchReportedIDs(rs *services.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := middleware.Identity(c)
		if who == nil {
			respondError(c, models.ErrUnauthorized)
			return
		}
		set, err := rs.FetchReportedIDs(c.Request.Context(), middleware.ReportCache(c), who.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		ids := make([]uuid.UUID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"event_ids": ids}, ""))
	}
}
