package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	redis "github.com/go-redis/redis/v8"
)

// HealthHandler reports liveness plus the state of the two backing stores.
type HealthHandler struct {
	Mongo *mongo.Client
	Redis *redis.Client
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(mongoClient *mongo.Client, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{Mongo: mongoClient, Redis: redisClient}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	overall := "healthy"
	status := http.StatusOK
	mongoStatus := "ok"
	redisStatus := "ok"

	if err := h.Mongo.Ping(ctx, nil); err != nil {
		mongoStatus = "unreachable"
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}
	if err := h.Redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unreachable"
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": overall,
		"mongo":  mongoStatus,
		"redis":  redisStatus,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
