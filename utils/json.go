package utils

import "github.com/gin-gonic/gin"

// Fail writes an error JSON response and stops the handler chain.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
