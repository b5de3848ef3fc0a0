// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Current configuration singleton.
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig holds the full application configuration. It is loaded from the
// environment at startup and merged with a persisted config.json so that
// settings changed at runtime (LLM provider, webhook defaults) survive
// restarts.
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	UploadDir string `json:"upload_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// Upload limits
	MaxUploadMB int64 `json:"max_upload_mb"`

	// LLM backend configuration. The deterministic planning path works
	// without it; the LLM path is only attempted when a provider is set.
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	// Bound on any single external model call before the deterministic
	// fallback takes over.
	LLMTimeoutSeconds int `json:"llm_timeout_seconds"`
}

// Load builds an AppConfig from environment variables. A .env file is
// honored when present.
func Load() (*AppConfig, error) {
	godotenv.Load()

	cfg := &AppConfig{
		Port:              getEnv("PORT", "8080"),
		DataDir:           getEnvPath("DATA_DIR", "data"),
		UploadDir:         getEnvPath("UPLOAD_DIR", filepath.Join("data", "uploads")),
		LogDir:            getEnvPath("LOG_DIR", "logs"),
		DebugMode:         getEnvBool("DEBUG_MODE", true),
		MaxUploadMB:       getEnvInt64("MAX_UPLOAD_MB", 2048),
		LLMProvider:       getEnv("LLM_PROVIDER", ""),
		LLMTimeoutSeconds: int(getEnvInt64("LLM_TIMEOUT_SECONDS", 30)),
		LLMConfig: map[string]string{
			"api_key":       getEnv("LLM_API_KEY", ""),
			"base_url":      getEnv("LLM_BASE_URL", ""),
			"default_model": getEnv("LLM_DEFAULT_MODEL", ""),
		},
	}

	if cfg.LLMProvider != "" && cfg.LLMConfig["api_key"] == "" && cfg.LLMProvider != "ollama" {
		log.Println("warning: LLM provider configured without an API key; falling back to deterministic planning")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath resolves a directory from the environment and ensures it exists.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// InitConfig initializes the configuration manager rooted at dataDir and
// merges any persisted config.json over the environment defaults.
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = baseConfig

	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			saved := &AppConfig{}
			if err := json.Unmarshal(data, saved); err == nil {
				mergeSavedConfig(currentConfig, saved)
			}
		}
	}

	return saveConfigLocked()
}

// mergeSavedConfig copies persisted runtime settings over the env defaults.
// Paths and ports stay environment-driven.
func mergeSavedConfig(dst, saved *AppConfig) {
	if saved.LLMProvider != "" {
		dst.LLMProvider = saved.LLMProvider
	}
	if len(saved.LLMConfig) > 0 {
		if dst.LLMConfig == nil {
			dst.LLMConfig = make(map[string]string)
		}
		for k, v := range saved.LLMConfig {
			if v != "" {
				dst.LLMConfig[k] = v
			}
		}
	}
	if saved.LLMTimeoutSeconds > 0 {
		dst.LLMTimeoutSeconds = saved.LLMTimeoutSeconds
	}
	if saved.MaxUploadMB > 0 {
		dst.MaxUploadMB = saved.MaxUploadMB
	}
}

// GetCurrentConfig returns the active configuration, or nil before InitConfig.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return currentConfig
}

// UpdateLLMConfig switches the LLM provider settings and persists them.
func UpdateLLMConfig(provider string, llmConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	currentConfig.LLMProvider = provider
	if currentConfig.LLMConfig == nil {
		currentConfig.LLMConfig = make(map[string]string)
	}
	for k, v := range llmConfig {
		currentConfig.LLMConfig[k] = v
	}

	return saveConfigLocked()
}

// SaveConfig persists the current configuration.
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return saveConfigLocked()
}

// saveConfigLocked persists the current configuration. Caller holds configMutex.
func saveConfigLocked() error {
	if currentConfig == nil || configFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
