package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/GooseOb/pai2024/internal/util"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store answers.
func Health(db Pinger, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			util.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable", "version": version, "error": err.Error()})
			return
		}
		util.JSON(c, http.StatusOK, gin.H{"status": "available", "version": version})
	}
}
