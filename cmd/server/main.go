// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/litelis/FrameForge/internal/app"
	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/di"
	"github.com/litelis/FrameForge/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := createDirectories(cfg); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	if err := app.Initialize(cfg.DataDir); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := performHealthCheck(); err != nil {
		log.Fatalf("Startup health check failed: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Server starting", map[string]interface{}{
		"port":  cfg.Port,
		"debug": cfg.DebugMode,
	})
	fmt.Printf("FrameForge listening on :%s\n", cfg.Port)

	if err := app.Run(); err != nil {
		logger.Error("Server exited with error", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("Server stopped", nil)
}

// createDirectories ensures every directory the pipeline writes to exists
// before any service starts.
func createDirectories(cfg *config.AppConfig) error {
	dirs := []string{
		cfg.DataDir,
		cfg.UploadDir,
		cfg.LogDir,
		filepath.Join(cfg.DataDir, "sessions"),
		filepath.Join(cfg.DataDir, "plans"),
		filepath.Join(cfg.DataDir, "temp"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// performHealthCheck verifies the critical services registered correctly.
func performHealthCheck() error {
	container := di.GetContainer()
	for _, name := range []string{"storage", "llm", "config", "session"} {
		if !container.Has(name) {
			return fmt.Errorf("critical service %q is not registered", name)
		}
	}
	return nil
}
