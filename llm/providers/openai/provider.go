// Package openai 实现 OpenAI Chat Completions 后端。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/llm"
	"github.com/BaSui01/meetingflow/llm/providers"
	"github.com/BaSui01/meetingflow/types"
)

const defaultBaseURL = "https://api.openai.com"

// Config OpenAI 后端配置
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider 实现 OpenAI Chat Completions API 的 llm.Provider。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 OpenAI 提供者实例。
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "llm.openai")),
	}
}

func (p *Provider) Name() string { return "openai" }

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		FinishReason string      `json:"finish_reason"`
		Message      llm.Message `json:"message"`
	} `json:"choices"`
	Usage llm.ChatUsage `json:"usage"`
}

// Completion 调用 /v1/chat/completions 并返回统一响应。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &types.Error{
			Code: types.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("openai request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model))
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, &types.Error{
			Code: types.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, &types.Error{
			Code: types.ErrEmptyCompletion, Message: "completion contained no usable text",
			Retryable: true, Provider: p.Name(),
		}
	}

	out := &llm.ChatResponse{
		ID:       completion.ID,
		Provider: p.Name(),
		Model:    completion.Model,
		Usage:    completion.Usage,
	}
	for _, c := range completion.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index: c.Index, FinishReason: c.FinishReason, Message: c.Message,
		})
	}
	if completion.Created != 0 {
		out.CreatedAt = time.Unix(completion.Created, 0)
	}
	return out, nil
}
