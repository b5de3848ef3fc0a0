// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/litelis/FrameForge/internal/api"
	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/di"
	// Providers register themselves in their package init.
	_ "github.com/litelis/FrameForge/internal/llm/providers/ollama"
	_ "github.com/litelis/FrameForge/internal/llm/providers/openai"
	"github.com/litelis/FrameForge/internal/services"
	"github.com/litelis/FrameForge/internal/storage"
	"github.com/litelis/FrameForge/internal/utils"
)

// Server abstracts *http.Server for shutdown testing.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App is the process-level singleton tying configuration, services and the
// HTTP server together.
type App struct {
	config   *config.AppConfig
	router   http.Handler
	server   Server
	stopChan chan os.Signal
}

var (
	instance *App
	appOnce  sync.Once
)

// GetApp returns the application singleton.
func GetApp() *App {
	appOnce.Do(func() {
		if instance == nil {
			instance = &App{
				stopChan: make(chan os.Signal, 1),
			}
		}
	})
	if instance == nil {
		instance = &App{stopChan: make(chan os.Signal, 1)}
	}
	return instance
}

// Initialize loads configuration, sets up logging, registers all services
// and builds the router.
func Initialize(dataDir string) error {
	if err := config.InitConfig(dataDir); err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	cfg := config.GetCurrentConfig()
	GetApp().config = cfg

	if err := initLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("service initialization failed: %w", err)
	}

	router, err := api.SetupRouter()
	if err != nil {
		return fmt.Errorf("router setup failed: %w", err)
	}
	GetApp().router = router

	return nil
}

// initLogger points the file logger at a dated file under logDir.
func initLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("frameforge_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// InitServices registers every service into the DI container in dependency
// order.
func InitServices() error {
	container := di.GetContainer()
	cfg := config.GetCurrentConfig()

	dataDir := "data"
	if cfg != nil && cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}

	fileStorage, err := storage.NewFileStorage(dataDir)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	container.Register("storage", fileStorage)

	llmService, err := services.NewLLMService()
	if err != nil || llmService == nil {
		llmService = services.NewEmptyLLMService()
	}
	container.Register("llm", llmService)

	configService := services.NewConfigService()
	container.Register("config", configService)

	notifierService := services.NewNotifierService()
	container.Register("notifier", notifierService)

	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	mediaService := services.NewMediaService(nil, nil)
	container.Register("media", mediaService)

	refinerService := services.NewRefinerService()
	container.Register("refiner", refinerService)

	questionService := services.NewQuestionService(llmService)
	container.Register("questions", questionService)

	narrativeService := services.NewNarrativeService()
	container.Register("narrative", narrativeService)

	plannerService := services.NewPlannerService(llmService)
	container.Register("planner", plannerService)

	sessionService := services.NewSessionService(
		fileStorage,
		refinerService,
		questionService,
		narrativeService,
		plannerService,
		notifierService,
	)
	container.Register("session", sessionService)

	return nil
}

// GetConfig returns the loaded application configuration.
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer exposes the container for callers outside the app package.
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode reports whether debug mode is enabled.
func IsDebugMode() bool {
	if instance == nil || instance.config == nil {
		return false
	}
	return instance.config.DebugMode
}

// Run starts the HTTP server and blocks until an interrupt arrives, then
// shuts down gracefully.
func Run() error {
	a := GetApp()

	if a.server == nil {
		port := "5000"
		if a.config != nil && a.config.Port != "" {
			port = a.config.Port
		}
		a.server = &http.Server{
			Addr:    ":" + port,
			Handler: a.router,
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-a.stopChan:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.cleanup()
	return nil
}

// cleanup releases resources held by registered services.
func (a *App) cleanup() {
	logger := utils.GetLogger()
	logger.Info("Shutting down services", nil)

	container := di.GetContainer()
	if progress, ok := container.Get("progress").(*services.ProgressService); ok && progress != nil {
		progress.CleanupCompletedTasks(0)
	}
}
