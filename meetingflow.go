// Package meetingflow provides a top-level convenience entry point for
// running multi-agent meetings with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/meetingflow"
//
//	cfg := config.DefaultConfig()
//	cfg.Topic = "improve the onboarding flow"
//	cfg.Agents = []config.AgentConfig{{Name: "aoi"}, {Name: "rin"}}
//
//	result, err := meetingflow.Run(ctx, cfg, logger)
//
// For finer control (event sinks, custom providers) build the orchestrator
// directly via [meeting.New].
package meetingflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/llm"
	"github.com/BaSui01/meetingflow/llm/providers/deterministic"
	"github.com/BaSui01/meetingflow/llm/providers/ollama"
	"github.com/BaSui01/meetingflow/llm/providers/openai"
	"github.com/BaSui01/meetingflow/meeting"
	"github.com/BaSui01/meetingflow/types"
)

// Version 构建时注入。
var Version = "dev"

// NewProvider 按配置构建 LLM 后端，并套上速率限制（如配置了 RPS）。
func NewProvider(cfg *config.MeetingConfig, logger *zap.Logger) (llm.Provider, error) {
	var provider llm.Provider
	switch cfg.Backend.Name {
	case "openai":
		provider = openai.New(openai.Config{
			APIKey:  cfg.Backend.OpenAIAPIKey,
			BaseURL: cfg.Backend.OpenAIBaseURL,
			Model:   cfg.Backend.OpenAIModel,
		}, logger)
	case "ollama":
		provider = ollama.New(ollama.Config{
			BaseURL: cfg.Backend.OllamaURL,
			Model:   cfg.Backend.OllamaModel,
		}, logger)
	case "deterministic":
		provider = deterministic.New(cfg.AgentNames())
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend.Name)
	}
	return llm.NewRateLimited(provider, cfg.Backend.RateLimitRPS), nil
}

// Run 用配置跑完一整场会议并返回结果。
// provider 构建、编排器装配都在内部完成；事件接收端通过 opts 追加。
func Run(ctx context.Context, cfg *config.MeetingConfig, logger *zap.Logger, opts ...meeting.Option) (*types.MeetingResult, error) {
	provider, err := NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	o, err := meeting.New(cfg, provider, logger, opts...)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx)
}
