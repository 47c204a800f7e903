package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/verse2video/internal/system"
)

// RegisterHealthRoutes registers health check endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", handleHealth)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"ffmpeg": system.FFmpegAvailable(),
	})
}
