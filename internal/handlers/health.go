package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health pings the database and Redis. Either failing answers 503.
func Health(db *gorm.DB, rdb *redis.Client, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok", "redis": "ok"}

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}

		c.JSON(status, gin.H{
			"status":     http.StatusText(status),
			"checks":     checks,
			"websockets": hub.ConnectedClients(),
			"time":       time.Now().UTC(),
		})
	}
}
