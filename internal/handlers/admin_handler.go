package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campus-events/internal/middleware"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

func ListUnderReview(ms *services.ModerationService, defaultPageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q struct {
			Page     int `form:"page"`
			PageSize int `form:"pageSize"`
		}
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid query parameters: "+err.Error()))
			return
		}
		if q.PageSize == 0 {
			q.PageSize = defaultPageSize
		}

		page, err := ms.ListUnderReview(c.Request.Context(), middleware.Identity(c), q.Page, q.PageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(
			page.Items,
			page.Page,
			page.PageSize,
			int(page.TotalCount),
			page.TotalPages,
		))
	}
}

func ApproveEvent(ms *services.ModerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := eventIDParam(c)
		if !ok {
			return
		}
		event, err := ms.ApproveEvent(c.Request.Context(), middleware.Identity(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "event approved"))
	}
}

func RejectEvent(ms *services.ModerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := eventIDParam(c)
		if !ok {
			return
		}
		if err := ms.RejectEvent(c.Request.Context(), middleware.Identity(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "event rejected"))
	}
}
