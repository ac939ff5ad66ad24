// Package llm provides a client for the upstream completion provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"knowledge-assistant-go/internal/apperr"
	"knowledge-assistant-go/internal/config"
	"knowledge-assistant-go/pkg/log"
)

// 超时预算：补全调用给得宽裕，模型目录调用是轻量请求。
const (
	completionTimeout = 180 * time.Second
	modelsTimeout     = 10 * time.Second
)

// 固定的生成参数，与原有部署保持一致。
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// Message 表示发送给补全接口的一条角色消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Client defines the interface for an LLM completion client.
type Client interface {
	// Complete 以 role-based 消息列表调用聊天补全接口，返回 assistant 文本。
	// model 为空时使用配置的默认模型。
	Complete(ctx context.Context, messages []Message, model string) (string, error)
	// ListModels 返回服务商的原始模型目录。
	ListModels(ctx context.Context) (json.RawMessage, error)
}

type openAICompatibleClient struct {
	cfg    config.CompletionConfig
	client *http.Client
}

// NewClient creates a new completion client for the configured provider.
func NewClient(cfg config.CompletionConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete 执行一次非流式补全调用。
func (c *openAICompatibleClient) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if model == "" {
		model = c.cfg.DefaultModel
	}
	start := time.Now()
	log.Infof("[AI] Starting request using model: %s", model)

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Stream:      false,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if apperr.IsTimeout(err) {
			log.Errorf("[AI] Request timed out after %.2fs", time.Since(start).Seconds())
			return "", apperr.Timeout(apperr.ProviderCompletion)
		}
		log.Errorf("[AI] Failed to call chat api: %v", err)
		return "", &apperr.UpstreamError{
			Provider: apperr.ProviderCompletion,
			Status:   http.StatusInternalServerError,
			Message:  "failed to reach completion provider",
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("[AI] Failed to read response body: %v", err)
		return "", apperr.InvalidShape(apperr.ProviderCompletion)
	}

	log.Infof("[AI] Received response in %.2fs with status code: %d", time.Since(start).Seconds(), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apperr.ExtractUpstreamMessage(body)
		log.Errorf("[AI] API request failed: %s", msg)
		return "", &apperr.UpstreamError{
			Provider: apperr.ProviderCompletion,
			Status:   resp.StatusCode,
			Message:  msg,
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		log.Errorf("[AI] Failed to parse response JSON: %v", err)
		return "", apperr.InvalidShape(apperr.ProviderCompletion)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		log.Errorf("[AI] Response missing choices[0].message.content")
		return "", apperr.InvalidShape(apperr.ProviderCompletion)
	}

	content := *chatResp.Choices[0].Message.Content
	log.Infof("[AI] Response length: %d chars, total time: %.2fs", len(content), time.Since(start).Seconds())
	return content, nil
}

// ListModels 返回服务商的模型目录，原样透传。
func (c *openAICompatibleClient) ListModels(ctx context.Context) (json.RawMessage, error) {
	log.Info("[AI] Getting models list from completion provider")

	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create models request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if apperr.IsTimeout(err) {
			log.Errorf("[AI] Timeout while fetching models list")
			return nil, apperr.Timeout(apperr.ProviderCompletion)
		}
		log.Errorf("[AI] Failed to fetch models: %v", err)
		return nil, &apperr.UpstreamError{
			Provider: apperr.ProviderCompletion,
			Status:   http.StatusInternalServerError,
			Message:  "failed to reach completion provider",
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.InvalidShape(apperr.ProviderCompletion)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apperr.ExtractUpstreamMessage(body)
		log.Errorf("[AI] Failed to get models list: %s", msg)
		return nil, &apperr.UpstreamError{
			Provider: apperr.ProviderCompletion,
			Status:   resp.StatusCode,
			Message:  msg,
		}
	}

	if !json.Valid(body) {
		return nil, apperr.InvalidShape(apperr.ProviderCompletion)
	}
	return json.RawMessage(body), nil
}
