package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL   = "https://api.deepseek.com"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible APIs
// (DeepSeek, OpenRouter, Ollama) via a configurable base URL.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	name         string
	defaultModel string
	headers      map[string]string
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithBaseURL sets the base URL for the OpenAI-compatible API.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.client = client
	}
}

// WithProviderName sets the provider name used in errors and responses.
func WithProviderName(name string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.name = name
	}
}

// WithDefaultModel sets the model used when a request leaves Model empty.
func WithDefaultModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.defaultModel = model
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.headers[key] = value
	}
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      defaultOpenAIBaseURL,
		client:       http.DefaultClient,
		name:         "openai",
		defaultModel: "gpt-4o-mini",
		headers:      map[string]string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDeepSeekProvider creates a provider for the DeepSeek API.
func NewDeepSeekProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(defaultDeepSeekBaseURL),
		WithProviderName("deepseek"),
		WithDefaultModel("deepseek-chat"),
	}, opts...)
	return NewOpenAIProvider(apiKey, opts...)
}

// NewOpenRouterProvider creates a provider for OpenRouter, which adds
// attribution headers on top of the OpenAI API.
func NewOpenRouterProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(defaultOpenRouterBaseURL),
		WithProviderName("openrouter"),
		WithDefaultModel("qwen/qwen-2.5-72b-instruct"),
		WithHeader("HTTP-Referer", "https://pandai.org"),
		WithHeader("X-Title", "P&AI Practice"),
	}, opts...)
	return NewOpenAIProvider(apiKey, opts...)
}

// NewOllamaProvider creates a provider for a self-hosted Ollama server using
// its OpenAI-compatible endpoint.
func NewOllamaProvider(baseURL string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(strings.TrimRight(baseURL, "/") + "/v1"),
		WithProviderName("ollama"),
		WithDefaultModel("llama3:8b"),
	}, opts...)
	return NewOpenAIProvider("", opts...)
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// openaiRequest is the request body for the chat completions API.
type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiChoice struct {
	Message Message `json:"message"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// openaiResponse is the response from the chat completions API.
type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Model   string         `json:"model"`
	Usage   openaiUsage    `json:"usage"`
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body := openaiRequest{
		Model:     model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		body.Temperature = &temp
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := make(map[string]string, len(p.headers)+1)
	for k, v := range p.headers {
		headers[k] = v
	}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var out openaiResponse
	if err := postJSON(ctx, p.client, p.name, p.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return CompletionResponse{}, err
	}
	if len(out.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("%s: no choices in response", p.name)
	}

	if out.Model == "" {
		out.Model = model
	}
	return CompletionResponse{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		Provider:     p.name,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}
