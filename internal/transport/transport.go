package transport

import (
	"net/http"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/ds124wfegd/ktx2converter/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(h *KTX2Handler) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	router.POST("/ktx2", h.Convert)
	router.GET("/stats", h.Stats)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, entity.HealthResponse{
			Status:  "ok",
			Service: "ktx2-converter",
		})
	})
	return router
}
