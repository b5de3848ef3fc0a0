// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/litelis/FrameForge/internal/llm"
)

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			supportedModels: []string{
				"gpt-4o",
				"gpt-4o-mini",
				"gpt-4.1",
				"gpt-4.1-mini",
				"o3-mini",
			},
		}
	})
}

type Provider struct {
	apiKey          string
	baseURL         string
	defaultModel    string
	supportedModels []string
	client          sdk.Client
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("OpenAI API key not provided")
	}
	p.apiKey = apiKey

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "gpt-4o-mini"
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
	}
	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	p.client = sdk.NewClient(clientOpts...)

	return nil
}

func (p *Provider) GetName() string {
	return "OpenAI"
}

func (p *Provider) GetSupportedModels() []string {
	return p.supportedModels
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, sdk.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}
	if req.TopP > 0 {
		params.TopP = sdk.Float(float64(req.TopP))
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}
	if len(req.StopWords) > 0 {
		params.Stop = sdk.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.StopWords,
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	return &llm.CompletionResponse{
		Text:         strings.TrimSpace(choice.Message.Content),
		FinishReason: string(choice.FinishReason),
		TokensUsed:   int(resp.Usage.TotalTokens),
		PromptTokens: int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		ModelName:    model,
		ProviderName: p.GetName(),
	}, nil
}
