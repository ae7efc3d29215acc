// Copyright 2026 the Jidhr authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"jidhr/pkg/metrics"
)

// OpenRouterConfig configures the OpenRouter client.
type OpenRouterConfig struct {
	Model   string
	APIKey  string
	BaseURL string // default https://openrouter.ai/api/v1
	Referer string // HTTP-Referer attribution header
	Title   string // X-Title attribution header
	Timeout time.Duration
}

// OpenRouterClient calls the OpenRouter chat completions API.
// One call per request; a failed call is reported, never retried.
type OpenRouterClient struct {
	model   string
	baseURL string
	referer string
	title   string
	client  *resty.Client
}

// NewOpenRouterClient creates an OpenRouter client.
func NewOpenRouterClient(config OpenRouterConfig) (*OpenRouterClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openrouter api key is required")
	}
	model := config.Model
	if model == "" {
		model = "anthropic/claude-sonnet-4"
	}
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Authorization", "Bearer "+config.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if config.Referer != "" {
		client.SetHeader("HTTP-Referer", config.Referer)
	}
	if config.Title != "" {
		client.SetHeader("X-Title", config.Title)
	}

	return &OpenRouterClient{
		model:   model,
		baseURL: baseURL,
		referer: config.Referer,
		title:   config.Title,
		client:  client,
	}, nil
}

// Chat implements Client.Chat.
func (c *OpenRouterClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

// ChatWithContext sends the message list and returns the trimmed reply text.
// Any transport, status, or decode failure maps to ErrUnavailable.
func (c *OpenRouterClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	request := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	if options.MaxTokens > 0 {
		request["max_tokens"] = options.MaxTokens
	}
	if options.Temperature > 0 {
		request["temperature"] = options.Temperature
	}

	start := time.Now()
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(request).
		Post(c.baseURL + "/chat/completions")
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMFailTotal.Inc()
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if response.StatusCode() != http.StatusOK {
		metrics.LLMFailTotal.Inc()
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, response.StatusCode(), truncateBody(response.String()))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		metrics.LLMFailTotal.Inc()
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(result.Choices) == 0 {
		metrics.LLMFailTotal.Inc()
		return "", fmt.Errorf("%w: empty choices", ErrUnavailable)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// Model returns the configured model name.
func (c *OpenRouterClient) Model() string { return c.model }

// Provider returns "openrouter".
func (c *OpenRouterClient) Provider() string { return "openrouter" }

func truncateBody(body string) string {
	if len(body) > 512 {
		return body[:512]
	}
	return body
}
