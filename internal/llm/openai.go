package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o"
	defaultOpenAIMaxTokens  = 1024
	defaultOpenAIRetryDelay = 2 * time.Second
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIProvider implements CompletionProvider using the OpenAI Chat Completions API.
// It also serves Azure OpenAI deployments: point BaseURL at the deployment and
// set APIKeyHeader to "api-key".
type OpenAIProvider struct {
	httpClient   *http.Client
	apiKey       string
	apiKeyHeader string
	model        string
	baseURL      string
	temperature  float64
	maxRetries   int
	retryDelay   time.Duration
}

// OpenAIConfig holds the parameters needed to create an OpenAI provider.
// This is defined in the llm package to avoid importing the config package.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the model identifier (e.g., "gpt-4o").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
	// APIKeyHeader overrides the auth header. Empty means standard
	// "Authorization: Bearer". Azure OpenAI uses "api-key".
	APIKeyHeader string
}

// NewOpenAIProvider creates a new OpenAI completion provider.
//
// The provider uses the OpenAI Chat Completions API and handles retry logic
// for transient API errors (5xx and 429) with linear backoff.
func NewOpenAIProvider(cfg OpenAIConfig, temperature float64, timeout time.Duration, maxRetries int) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OpenAIProvider{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:       cfg.APIKey,
		apiKeyHeader: cfg.APIKeyHeader,
		model:        model,
		baseURL:      baseURL,
		temperature:  temperature,
		maxRetries:   maxRetries,
		retryDelay:   defaultOpenAIRetryDelay,
	}
}

// Complete generates text for the given request using the OpenAI API.
//
// Transient errors (5xx and 429) are retried up to maxRetries times with
// linear backoff. Context cancellation is respected between retries.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	chatReq := chatRequest{
		Model:       p.model,
		Temperature: p.effectiveTemperature(req),
		MaxTokens:   p.effectiveMaxTokens(req),
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "user", Content: req.Prompt})

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := p.doRequest(ctx, chatReq)
		if err == nil {
			return result, nil
		}

		// Only retry on transient errors (5xx, 429).
		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// Provider returns the name of the LLM provider.
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Model returns the model identifier being used.
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) effectiveTemperature(req CompletionRequest) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return p.temperature
}

func (p *OpenAIProvider) effectiveMaxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultOpenAIMaxTokens
}

// doRequest performs a single API request to the OpenAI Chat Completions endpoint.
func (p *OpenAIProvider) doRequest(ctx context.Context, chatReq chatRequest) (*CompletionResult, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKeyHeader != "" {
		httpReq.Header.Set(p.apiKeyHeader, p.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are considered transient and eligible for retry.
		return nil, &APIError{
			Provider:   "openai",
			StatusCode: 0,
			Message:    fmt.Sprintf("request failed: %v", err),
			Type:       "network_error",
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &APIError{
			Provider:   "openai",
			StatusCode: 0,
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Type:       "network_error",
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseOpenAIAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	model := chatResp.Model
	if model == "" {
		model = p.model
	}

	return &CompletionResult{
		Content:      chatResp.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
	}, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
