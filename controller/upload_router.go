package controller

import (
	"time"

	"chunk-upload-system/controller/handler"
	"chunk-upload-system/controller/respond"
	uploaderDocs "chunk-upload-system/docs/uploader"
	"chunk-upload-system/service/upload_service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// SetupUploadRouter setup upload service router
func SetupUploadRouter(uploadService *upload_service.UploadService, swaggerHost string, log *zap.Logger) *gin.Engine {
	// Set Swagger host from config
	if swaggerHost != "" {
		uploaderDocs.SwaggerInfouploader.Host = swaggerHost
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all origins, can be configured to specific domains
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Content-Encoding", "Accept-Encoding", "X-CSRF-Token", "Authorization", "Accept", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add timing middleware
	r.Use(respond.TimingMiddleware())

	uploadHandler := handler.NewUploadHandler(uploadService, log)

	// API v1 route group
	v1 := r.Group("/api/v1")
	{
		uploads := v1.Group("/uploads")
		{
			// Init upload (may short-circuit through dedup)
			uploads.POST("", uploadHandler.InitUpload)

			// Upload one chunk
			uploads.PUT("/:sessionId/chunks/:chunkNumber", uploadHandler.UploadChunk)

			// Complete upload
			uploads.POST("/:sessionId/complete", uploadHandler.CompleteUpload)

			// Progress, for resuming
			uploads.GET("/:sessionId", uploadHandler.GetProgress)

			// Abort upload
			uploads.DELETE("/:sessionId", uploadHandler.AbortUpload)
		}

		v1.GET("/files/:id", uploadHandler.GetFile)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":         "ok",
			"service":        "uploader",
			"activeSessions": uploadService.ActiveSessions(),
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName("uploader")))

	return r
}

// requestLogger access log through zap
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
