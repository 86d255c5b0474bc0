package handlers

import (
	"net/http"
	"strings"

	"github.com/bestfriendai/newevents-api/internal/geocode"
	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/gin-gonic/gin"
)

// Geocode resolves the UI location box's free text to coordinates.
func Geocode(geocoder geocode.Geocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("query parameter q is required"))
			return
		}
		if geocoder == nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse("geocoding is not configured"))
			return
		}

		loc, err := geocoder.Forward(c.Request.Context(), query)
		if err != nil {
			c.JSON(http.StatusNotFound, models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(loc, ""))
	}
}
