// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/di"
	"github.com/litelis/FrameForge/internal/services"
	"github.com/litelis/FrameForge/internal/storage"
	"github.com/litelis/FrameForge/internal/utils"
)

// SetupRouter configures the HTTP routes. Services come exclusively from
// the DI container, never constructed here.
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	container := di.GetContainer()

	sessionService, ok := container.Get("session").(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("session service not initialized")
	}

	mediaService, ok := container.Get("media").(*services.MediaService)
	if !ok {
		return nil, fmt.Errorf("media service not initialized")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("progress service not initialized")
	}

	notifierService, ok := container.Get("notifier").(*services.NotifierService)
	if !ok {
		return nil, fmt.Errorf("notifier service not initialized")
	}

	configService, ok := container.Get("config").(*services.ConfigService)
	if !ok {
		return nil, fmt.Errorf("config service not initialized")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("llm service not initialized")
	}

	fileStorage, ok := container.Get("storage").(*storage.FileStorage)
	if !ok {
		return nil, fmt.Errorf("storage not initialized")
	}

	handler := NewHandler(
		sessionService,
		mediaService,
		progressService,
		notifierService,
		configService,
		llmService,
		fileStorage,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(apiMetricsMiddleware())

	// Health and diagnostics
	r.GET("/health", handler.HealthCheck)
	r.GET("/ws/status", handler.GetWebSocketStatus)

	// Session progress stream
	r.GET("/ws/sessions/:id", handler.SessionWebSocket)

	apiGroup := r.Group("/api")
	apiGroup.Use(DefaultRateLimit())
	{
		apiGroup.POST("/upload", UploadRateLimit(), handler.UploadVideo)
		apiGroup.POST("/webhook/config", handler.ConfigureWebhook)

		phase1 := apiGroup.Group("/phase1")
		{
			phase1.POST("/refine", handler.Phase1Refine)
			phase1.POST("/approve", handler.Phase1Approve)
		}

		phase2 := apiGroup.Group("/phase2")
		{
			phase2.POST("/questions", PlanningRateLimit(), handler.Phase2Questions)
			phase2.POST("/answer", handler.Phase2Answer)
		}

		apiGroup.POST("/phase3/analyze", PlanningRateLimit(), handler.Phase3Analyze)
		apiGroup.POST("/phase4/plan", PlanningRateLimit(), handler.Phase4Plan)

		apiGroup.POST("/transcription", handler.StartTranscription)
		apiGroup.POST("/visual-analysis", handler.StartVisualAnalysis)

		apiGroup.GET("/sessions/:id", handler.GetSession)
		apiGroup.GET("/plans/:id/export", handler.ExportPlan)

		settings := apiGroup.Group("/settings")
		{
			settings.POST("/llm", handler.UpdateLLMSettings)
			settings.GET("/llm", handler.GetLLMStatus)
		}
	}

	return r, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// apiMetricsMiddleware records per-request metrics.
func apiMetricsMiddleware() gin.HandlerFunc {
	metrics := utils.NewAPIMetrics()
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		metrics.RecordAPIRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(started))
	}
}
