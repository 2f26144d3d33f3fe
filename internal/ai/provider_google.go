package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// GoogleProvider implements Provider for Google Gemini's generateContent API.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleBaseURL points the provider at another endpoint.
func WithGoogleBaseURL(baseURL string) GoogleOption {
	return func(p *GoogleProvider) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithGoogleHTTPClient replaces the default HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.client = client }
}

// NewGoogleProvider creates a Gemini provider authenticated by apiKey.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// text joins the first candidate's parts. A blocked prompt or a candidate
// cut off by a safety filter is an error.
func (r geminiResponse) text() (string, error) {
	if reason := r.PromptFeedback.BlockReason; reason != "" {
		return "", fmt.Errorf("gemini: prompt blocked (%s)", reason)
	}
	if len(r.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}
	c := r.Candidates[0]
	var b strings.Builder
	for _, part := range c.Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		if c.FinishReason != "" && c.FinishReason != "STOP" {
			return "", fmt.Errorf("gemini: empty candidate (finish reason %s)", c.FinishReason)
		}
		return "", fmt.Errorf("gemini: no content in response")
	}
	return b.String(), nil
}

// geminiContents maps chat roles onto Gemini's user/model turns.
func geminiContents(messages []Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	return contents
}

func geminiConfig(req CompletionRequest) *geminiGenerationConfig {
	if req.MaxTokens <= 0 && req.Temperature <= 0 && !req.JSONMode {
		return nil
	}
	cfg := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
	if req.Temperature > 0 {
		temp := req.Temperature
		cfg.Temperature = &temp
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultGeminiModel
	}

	system, messages := systemPrompt(req.Messages)
	body := geminiRequest{
		Contents:         geminiContents(messages),
		GenerationConfig: geminiConfig(req),
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	var out geminiResponse
	if err := postJSON(ctx, p.client, "gemini", endpoint, map[string]string{"x-goog-api-key": p.apiKey}, body, &out); err != nil {
		return CompletionResponse{}, err
	}
	content, err := out.text()
	if err != nil {
		return CompletionResponse{}, err
	}

	return CompletionResponse{
		Content:      content,
		Model:        model,
		Provider:     "google",
		InputTokens:  out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
	}, nil
}
