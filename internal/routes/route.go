package routes

import (
	"github.com/bestfriendai/newevents-api/internal/container"
	"github.com/bestfriendai/newevents-api/internal/handlers"
	"github.com/bestfriendai/newevents-api/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "newevents-api",
			})
		})

		eventRoutes := v1.Group("/events")
		{
			eventRoutes.GET("/search", handlers.SearchEvents(container.EventsService))
			eventRoutes.GET("/usage", handlers.ProviderUsage(container.Limiters))
		}

		v1.GET("/geocode", handlers.Geocode(container.Geocoder))
	}

	return r
}
