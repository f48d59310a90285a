package util

import (
	"github.com/gin-gonic/gin"
)

// JSON writes v as the response body.
func JSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

// Error writes the uniform error body {"error": msg, "details": ...}.
// details is omitted when empty.
func Error(c *gin.Context, httpStatus int, msg string, details ...any) {
	body := gin.H{"error": msg}
	switch len(details) {
	case 0:
	case 1:
		if details[0] != nil && details[0] != "" {
			body["details"] = details[0]
		}
	default:
		body["details"] = details
	}
	c.JSON(httpStatus, body)
}

// Abort is Error followed by c.Abort, for middleware.
func Abort(c *gin.Context, httpStatus int, msg string) {
	Error(c, httpStatus, msg)
	c.Abort()
}
