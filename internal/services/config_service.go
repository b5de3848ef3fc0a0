// internal/services/config_service.go
package services

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/utils"
)

// ConfigService manages runtime configuration: provider switches, change
// history, and at-rest protection of API keys.
type ConfigService struct {
	cachedConfig *config.AppConfig
	lastUpdated  time.Time

	subscribers   []ConfigChangeSubscriber
	changeHistory []ConfigChangeRecord

	// encryptionKey protects api_key values before they reach disk.
	// Empty key means keys are stored as-is.
	encryptionKey string

	mu sync.RWMutex
}

// ConfigChangeSubscriber receives configuration change events.
type ConfigChangeSubscriber interface {
	OnConfigChanged(oldConfig, newConfig *config.AppConfig)
}

// ConfigChangeRecord is one entry of the change history.
type ConfigChangeRecord struct {
	Timestamp time.Time
	ChangedBy string
	Section   string
	OldValue  interface{}
	NewValue  interface{}
}

// NewConfigService creates the configuration service.
func NewConfigService() *ConfigService {
	service := &ConfigService{
		lastUpdated:   time.Now(),
		subscribers:   make([]ConfigChangeSubscriber, 0),
		changeHistory: make([]ConfigChangeRecord, 0, 100),
		encryptionKey: os.Getenv("CONFIG_ENCRYPTION_KEY"),
	}
	service.cachedConfig = config.GetCurrentConfig()
	return service
}

// GetCurrentConfig returns the cached configuration.
func (s *ConfigService) GetCurrentConfig() *config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cachedConfig == nil {
		s.cachedConfig = config.GetCurrentConfig()
	}
	return s.cachedConfig
}

// UpdateLLMConfig switches the model provider and persists its settings.
// API keys are encrypted before they hit the config file when an
// encryption key is configured.
func (s *ConfigService) UpdateLLMConfig(provider string, configMap map[string]string, changedBy string) error {
	if provider == "" {
		return errors.New("provider cannot be empty")
	}

	s.mu.Lock()
	oldConfig := s.cachedConfig
	var oldProvider string
	if oldConfig != nil {
		oldProvider = oldConfig.LLMProvider
	}
	s.mu.Unlock()

	if _, ok := configMap["default_model"]; !ok {
		switch provider {
		case "openai":
			configMap["default_model"] = "gpt-4o-mini"
		case "ollama":
			configMap["default_model"] = "llama3.1"
		default:
			configMap["default_model"] = "gpt-4o-mini"
		}
	}

	persisted := make(map[string]string, len(configMap))
	for k, v := range configMap {
		persisted[k] = v
	}
	if key, ok := persisted["api_key"]; ok && key != "" && s.encryptionKey != "" {
		encrypted, err := utils.Encrypt(key, s.encryptionKey)
		if err != nil {
			return err
		}
		persisted["api_key"] = encryptedPrefix + encrypted
	}

	err := config.UpdateLLMConfig(provider, persisted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cachedConfig = config.GetCurrentConfig()
	s.lastUpdated = time.Now()
	newConfig := s.cachedConfig
	s.mu.Unlock()

	s.recordChange("llm_provider", oldProvider, provider, changedBy)
	s.notifySubscribers(oldConfig, newConfig)
	return nil
}

// encryptedPrefix marks api_key values that were encrypted at rest.
const encryptedPrefix = "enc:"

// GetLLMProvider returns the active provider name.
func (s *ConfigService) GetLLMProvider() string {
	return s.GetCurrentConfig().LLMProvider
}

// GetLLMConfig returns the provider settings with API keys decrypted for
// in-process use.
func (s *ConfigService) GetLLMConfig() map[string]string {
	cfg := s.GetCurrentConfig()
	result := make(map[string]string, len(cfg.LLMConfig))
	for k, v := range cfg.LLMConfig {
		result[k] = v
	}
	if key, ok := result["api_key"]; ok && strings.HasPrefix(key, encryptedPrefix) && s.encryptionKey != "" {
		decrypted, err := utils.Decrypt(strings.TrimPrefix(key, encryptedPrefix), s.encryptionKey)
		if err == nil {
			result["api_key"] = decrypted
		}
	}
	return result
}

// SetDebugMode toggles debug mode and persists the configuration.
func (s *ConfigService) SetDebugMode(enabled bool) error {
	cfg := s.GetCurrentConfig()
	cfg.DebugMode = enabled
	return config.SaveConfig()
}

// SubscribeToChanges registers a change subscriber.
func (s *ConfigService) SubscribeToChanges(subscriber ConfigChangeSubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, subscriber)
}

// notifySubscribers fans a change event out to every subscriber.
func (s *ConfigService) notifySubscribers(oldConfig, newConfig *config.AppConfig) {
	s.mu.RLock()
	subscribers := make([]ConfigChangeSubscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.RUnlock()

	for _, subscriber := range subscribers {
		go subscriber.OnConfigChanged(oldConfig, newConfig)
	}
}

// GetChangeHistory returns the most recent change records.
func (s *ConfigService) GetChangeHistory(limit int) []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.changeHistory) {
		limit = len(s.changeHistory)
	}

	history := make([]ConfigChangeRecord, limit)
	copy(history, s.changeHistory[len(s.changeHistory)-limit:])
	return history
}

func (s *ConfigService) recordChange(section string, oldValue, newValue interface{}, changedBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.changeHistory) >= 1000 {
		s.changeHistory = s.changeHistory[1:]
	}
	s.changeHistory = append(s.changeHistory, ConfigChangeRecord{
		Timestamp: time.Now(),
		ChangedBy: changedBy,
		Section:   section,
		OldValue:  oldValue,
		NewValue:  newValue,
	})
}
