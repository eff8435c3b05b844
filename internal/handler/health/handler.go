package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	db    *sqlx.DB
	cache *redis.Client
}

func NewHandler(db *sqlx.DB, cache *redis.Client) *Handler {
	return &Handler{db: db, cache: cache}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/health")
	{
		group.GET("/live", h.Liveness)
		group.GET("/ready", h.Readiness)
		group.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Readiness checks the database and, when configured, Redis. Redis is
// optional; only the database gates readiness.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	checks["database"] = "ok"

	if h.cache != nil {
		if err := h.cache.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
