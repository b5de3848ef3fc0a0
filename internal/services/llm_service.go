// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/llm"
	"github.com/litelis/FrameForge/internal/utils"
)

var ErrLLMNotReady = errors.New("llm service not ready")

var providerDefaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"ollama": "llama3.1",
}

// LLMService wraps the configured provider behind a uniform interface with
// response caching and a bounded per-call timeout. All phase services treat
// the LLM as optional: a not-ready service means callers take their
// deterministic paths.
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	activeDefaultModel string
	timeout            time.Duration
	isReady            bool
	readyState         string
	cache              *llmCache
	metrics            *utils.APIMetrics
}

type llmCache struct {
	cache      map[string]*llmCacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type llmCacheEntry struct {
	Text      string
	CreatedAt time.Time
}

// NewLLMService initializes the service from the current configuration. A
// missing or broken provider configuration yields a not-ready service, not
// an error.
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}
	if cfg.LLMTimeoutSeconds > 0 {
		service.timeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	}

	if cfg.LLMProvider == "" {
		service.readyState = "LLM provider not configured"
		return service, nil
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = extractDefaultModel(cfg.LLMProvider, cfg.LLMConfig)
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewEmptyLLMService creates a standby service with no provider attached.
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.providerName = "empty"
	service.readyState = "Standby mode - configure an LLM provider in settings"
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "Uninitialized",
		timeout:    30 * time.Second,
		metrics:    utils.NewAPIMetrics(),
		cache: &llmCache{
			cache:      make(map[string]*llmCacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

func extractDefaultModel(providerName string, llmConfig map[string]string) string {
	if llmConfig != nil && llmConfig["default_model"] != "" {
		return llmConfig["default_model"]
	}
	return providerDefaultModels[providerName]
}

// IsReady reports whether a provider is attached and initialized.
func (s *LLMService) IsReady() bool {
	if s == nil {
		return false
	}
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState returns a human-readable readiness description.
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderName returns the active provider's registry name.
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider swaps the active provider and resets the response cache.
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(providerName, providerConfig)
	s.isReady = true
	s.readyState = "Ready"
	s.cache = &llmCache{
		cache:      make(map[string]*llmCacheEntry),
		expiration: 30 * time.Minute,
	}

	return nil
}

func (s *LLMService) resolveModel(requested string) string {
	if requested != "" {
		return requested
	}
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.activeDefaultModel
}

func (s *LLMService) cacheKey(prompt, systemPrompt, model string) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	h := md5.New()
	fmt.Fprintf(h, "%s:::%s:::%s:::%s", prompt, systemPrompt, model, providerName)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *llmCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return "", false
	}
	return entry.Text, true
}

func (c *llmCache) put(key, text string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache[key] = &llmCacheEntry{Text: text, CreatedAt: time.Now()}
}

// CreateCompletion runs a plain text completion with the bounded timeout.
func (s *LLMService) CreateCompletion(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return "", fmt.Errorf("%w: %s", ErrLLMNotReady, s.GetReadyState())
	}

	model := s.resolveModel("")
	key := s.cacheKey(prompt, systemPrompt, model)
	if text, ok := s.cache.get(key); ok {
		return text, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	resp, err := provider.CompleteText(callCtx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
		Model:        model,
	})
	if err != nil {
		return "", err
	}
	s.metrics.RecordLLMRequest(resp.ProviderName, resp.ModelName, resp.TokensUsed, time.Since(started))

	s.cache.put(key, resp.Text)
	return resp.Text, nil
}

// CreateStructuredCompletion runs a completion that must yield JSON. The
// system prompt is extended with a strict-format instruction and the raw
// response is sanitized of code fences before being returned. Callers own
// schema validation and the deterministic fallback.
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return "", fmt.Errorf("%w: %s", ErrLLMNotReady, s.GetReadyState())
	}

	structuredSystemPrompt := systemPrompt
	if structuredSystemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response as valid JSON only, without explanations or preambles."

	model := s.resolveModel("")
	key := s.cacheKey(prompt, structuredSystemPrompt, model)
	if text, ok := s.cache.get(key); ok {
		return text, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	resp, err := provider.CompleteText(callCtx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
		Model:        model,
	})
	if err != nil {
		return "", err
	}
	s.metrics.RecordLLMRequest(resp.ProviderName, resp.ModelName, resp.TokensUsed, time.Since(started))

	text := SanitizeLLMJSONResponse(resp.Text)
	s.cache.put(key, text)
	return text, nil
}

var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\uFEFF", "",
	" ", " ",
	" ", "\n",
	" ", "\n",
)

// SanitizeLLMJSONResponse strips markdown fences and invisible characters
// that models commonly wrap around JSON payloads.
func SanitizeLLMJSONResponse(raw string) string {
	return strings.TrimSpace(jsonNoiseReplacer.Replace(raw))
}
