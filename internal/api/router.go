package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/queue"
)

// NewRouter creates and configures the Gin router
func NewRouter(store *queue.Store, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "api")

	router := gin.New()
	router.Use(recoveryMiddleware(logger))
	router.Use(loggingMiddleware(logger))

	posts := NewPostHandler(store, logger)

	router.GET("/health", healthCheck)

	v1 := router.Group("/v1")
	{
		group := v1.Group("/posts")
		{
			group.GET("", posts.List)
			group.POST("", posts.Create)
			group.GET("/:platform/:id", posts.Get)
			group.PUT("/:platform/:id", posts.Update)
			group.DELETE("/:platform/:id", posts.Delete)
		}
		v1.GET("/ids/new", posts.NewID)
	}

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "contento",
	})
}

func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", logging.Any("error", err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 400 {
			level = slog.LevelWarn
		}
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request completed",
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		)
	}
}
