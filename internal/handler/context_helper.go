package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.Claims(c).Session()
}
