// internal/llm/interface_test.go
package llm_test

import (
	"errors"
	"testing"

	"github.com/litelis/FrameForge/internal/llm"
	_ "github.com/litelis/FrameForge/internal/llm/providers/ollama"
	_ "github.com/litelis/FrameForge/internal/llm/providers/openai"
)

func TestGetProviderResolvesRegisteredBackends(t *testing.T) {
	provider, err := llm.GetProvider("openai", map[string]string{"api_key": "test-key"})
	if err != nil {
		t.Fatalf("GetProvider(openai) failed: %v", err)
	}
	if provider.GetName() != "OpenAI" {
		t.Errorf("provider name = %q, want OpenAI", provider.GetName())
	}

	provider, err = llm.GetProvider("ollama", map[string]string{})
	if err != nil {
		t.Fatalf("GetProvider(ollama) failed: %v", err)
	}
	if provider.GetName() != "Ollama" {
		t.Errorf("provider name = %q, want Ollama", provider.GetName())
	}
}

func TestGetProviderInitializeFailureIsNotUnknown(t *testing.T) {
	// A registered provider with bad configuration must fail its own
	// initialization, not the registry lookup.
	_, err := llm.GetProvider("openai", map[string]string{})
	if err == nil {
		t.Fatal("openai without an api_key should fail to initialize")
	}
	if errors.Is(err, llm.ErrUnknownProvider) {
		t.Errorf("initialization failure must not surface as ErrUnknownProvider, got %v", err)
	}
}

func TestGetProviderUnknownName(t *testing.T) {
	_, err := llm.GetProvider("no-such-backend", map[string]string{})
	if !errors.Is(err, llm.ErrUnknownProvider) {
		t.Errorf("unknown name should return ErrUnknownProvider, got %v", err)
	}
}

func TestListProvidersIncludesRegisteredBackends(t *testing.T) {
	names := llm.ListProviders()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, want := range []string{"openai", "ollama"} {
		if !seen[want] {
			t.Errorf("ListProviders should include %q, got %v", want, names)
		}
	}
}
