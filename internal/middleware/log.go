package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request in morgan's "tiny" format:
// METHOD URL STATUS SIZE - LATENCY ms
func RequestLogger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		size := "-"
		if p.BodySize >= 0 {
			size = fmt.Sprint(p.BodySize)
		}
		return fmt.Sprintf("%s %s %d %s - %.3f ms\n",
			p.Method, p.Path, p.StatusCode, size,
			float64(p.Latency)/float64(time.Millisecond))
	})
}

// AuditMiddleware logs every mutating request made by a logged-in person
// after it has been handled.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			return
		}
		p := CurrentUser(c)
		if p == nil {
			return
		}
		log.Printf("audit person=%s role=%d %s %s %d ip=%s",
			p.ID, p.Role, c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(), c.ClientIP())
	}
}
