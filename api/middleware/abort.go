package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/cardgrab/models"
)

// APIKeyContextKey holds the authenticated key on the gin context.
const APIKeyContextKey = "api_key"

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, models.ProductResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: msg},
	})
}
