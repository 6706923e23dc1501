// Package ollama 实现本地 Ollama 后端（/api/chat，非流式）。
package ollama

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

const defaultBaseURL = "http://localhost:11434"

// Config Ollama 后端配置
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider 实现 Ollama 的 llm.Provider。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Ollama 提供者实例。
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		// 本地模型冷启动可能很慢
		cfg.Timeout = 300 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "llm.ollama")),
	}
}

func (p *Provider) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	Message   llm.Message `json:"message"`
	Done      bool        `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Completion 调用 /api/chat 并返回统一响应。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body := ollamaChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/chat", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &types.Error{
			Code: types.ErrProviderUnavailable, Message: err.Error(),
			Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("ollama request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model))
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, &types.Error{
			Code: types.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	if strings.TrimSpace(chat.Message.Content) == "" {
		return nil, &types.Error{
			Code: types.ErrEmptyCompletion, Message: "completion contained no usable text",
			Retryable: true, Provider: p.Name(),
		}
	}

	return &llm.ChatResponse{
		Provider:  p.Name(),
		Model:     chat.Model,
		CreatedAt: chat.CreatedAt,
		Choices: []llm.ChatChoice{{
			Message: chat.Message,
			FinishReason: func() string {
				if chat.Done {
					return "stop"
				}
				return ""
			}(),
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     chat.PromptEvalCount,
			CompletionTokens: chat.EvalCount,
			TotalTokens:      chat.PromptEvalCount + chat.EvalCount,
		},
	}, nil
}
