package handler

import (
	"context"
	"net/http"
	"time"

	"tablepos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// A nil Redis client means the cache is disabled and is reported as such.
// With Redis up it also reports how many jobs sit in each dead letter queue.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if db == nil {
			dbStatus = "error"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		// The cache is a mirror; only the database decides readiness.
		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if redisStatus == "connected" {
			dlq := gin.H{}
			for name, queue := range map[string]string{"billArchive": worker.QueueBillArchive, "email": worker.QueueEmail} {
				if n, err := worker.DLQLength(ctx, rdb, queue); err == nil {
					dlq[name] = n
				}
			}
			body["dlq"] = dlq
		}
		c.JSON(status, body)
	}
}
