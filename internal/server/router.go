package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"

	"github.com/skillforge/skillforge-backend/internal/catalog"
	"github.com/skillforge/skillforge-backend/internal/platform/envutil"
	"github.com/skillforge/skillforge-backend/internal/services"
)

// RouterConfig carries the router dependencies. Redis may be nil when the
// catalog cache is disabled.
type RouterConfig struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Catalog *services.CatalogService
}

// NewRouter builds the operational HTTP surface: liveness and readiness.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if envutil.String("GIN_MODE", "") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", HealthCheck)
	router.GET("/readyz", readyCheck(cfg))
	if cfg.Catalog != nil {
		router.POST("/catalog/search", catalogSearch(cfg.Catalog))
	}

	return router
}

// catalogSearch exposes the catalog read model. Filters arrive as a JSON
// query document; an empty body lists the first page.
func catalogSearch(svc *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q catalog.Query
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&q); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		page, err := svc.Search(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog search failed"})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func allowedOrigins() []string {
	raw := envutil.String("CORS_ALLOW_ORIGINS", "")
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyCheck reports not-ready until Postgres answers; Redis is optional and
// only reported, never gating.
func readyCheck(cfg RouterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		ready := true

		if cfg.DB != nil {
			sqlDB, err := cfg.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				checks["postgres"] = err.Error()
				ready = false
			} else {
				checks["postgres"] = "ok"
			}
		} else {
			checks["postgres"] = "not configured"
			ready = false
		}

		if cfg.Redis != nil {
			if err := cfg.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": ready, "checks": checks})
	}
}
