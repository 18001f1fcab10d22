package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campus-events/internal/middleware"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

func bindListQuery(c *gin.Context) (services.ListQuery, bool) {
	var q services.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid query parameters: "+err.Error()))
		return q, false
	}
	return q, true
}

func renderPage(c *gin.Context, page *services.EventPage) {
	c.JSON(http.StatusOK, models.PaginatedResponse(
		page.Events,
		page.Page,
		page.PageSize,
		int(page.TotalCount),
		page.TotalPages,
	))
}

func ListEvents(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := bindListQuery(c)
		if !ok {
			return
		}
		page, err := es.ListEvents(c.Request.Context(), middleware.ReportCache(c), middleware.Identity(c), q)
		if err != nil {
			respondError(c, err)
			return
		}
		renderPage(c, page)
	}
}

func ListMyEvents(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := bindListQuery(c)
		if !ok {
			return
		}
		page, err := es.ListMyEvents(c.Request.Context(), middleware.Identity(c), q)
		if err != nil {
			respondError(c, err)
			return
		}
		renderPage(c, page)
	}
}

// bindEventForm reads the multipart fields and the optional image part.
// The returned close func must be called once the upload is consumed.
func bindEventForm(c *gin.Context) (models.EventInput, *services.ImageUpload, func(), bool) {
	var in models.EventInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid event payload: "+err.Error()))
		return in, nil, nil, false
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil, func() {}, true
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid image upload: "+err.Error()))
		return in, nil, nil, false
	}
	img := &services.ImageUpload{Filename: header.Filename, Content: file}
	return in, img, func() { _ = file.Close() }, true
}

func CreateEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, img, done, ok := bindEventForm(c)
		if !ok {
			return
		}
		defer done()

		event, err := es.CreateEvent(c.Request.Context(), middleware.Identity(c), in, img)
		if err != nil {
			respondError(c, err)
			return
		}
		who := middleware.Identity(c)
		c.JSON(http.StatusCreated, models.SuccessResponse(models.NewEventView(event, who.ID), "event created"))
	}
}

func UpdateEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := eventIDParam(c)
		if !ok {
			return
		}
		in, img, done, ok := bindEventForm(c)
		if !ok {
			return
		}
		defer done()

		event, err := es.UpdateEvent(c.Request.Context(), middleware.Identity(c), id, in, img)
		if err != nil {
			respondError(c, err)
			return
		}
		who := middleware.Identity(c)
		c.JSON(http.StatusOK, models.SuccessResponse(models.NewEventView(event, who.ID), "event updated"))
	}
}

func DeleteEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := eventIDParam(c)
		if !ok {
			return
		}
		if err := es.DeleteEvent(c.Request.Context(), middleware.Identity(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "event deleted"))
	}
}
