package core

import "github.com/gin-gonic/gin"

// respondDetail sends the error payload shape the dashboard clients parse:
// {"detail": "..."}. Clients fall back to a "message" field, then a default.
func respondDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}
