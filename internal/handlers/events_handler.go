package handlers

import (
	"net/http"
	"strings"

	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/ratelimit"
	"github.com/bestfriendai/newevents-api/internal/services"
	"github.com/gin-gonic/gin"
)

// SearchEvents binds the query string into canonical search parameters and
// runs one aggregation pass. Validation failures are the only 4xx; upstream
// trouble rides inside the response as a soft error.
func SearchEvents(svc *services.UnifiedEventsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.SearchParams
		if err := c.ShouldBindQuery(&params); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid query parameters: "+err.Error()))
			return
		}

		resp, err := svc.SearchEvents(c.Request.Context(), params)
		if err != nil {
			if strings.HasPrefix(err.Error(), "invalid search parameters") {
				c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
				return
			}
			c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(resp, ""))
	}
}

// ProviderUsage exposes the rate-limiter windows for observability.
func ProviderUsage(limiters map[string]*ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		usage := make([]ratelimit.Usage, 0, len(limiters))
		for _, l := range limiters {
			usage = append(usage, l.Usage())
		}
		c.JSON(http.StatusOK, models.SuccessResponse(usage, ""))
	}
}
