package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider 在 Completion 前按令牌桶等待，保护上游配额。
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited 包装 Provider，rps 为每秒请求数上限。
// rps <= 0 时直接返回原 Provider。
func NewRateLimited(inner Provider, rps float64) Provider {
	if rps <= 0 {
		return inner
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Completion(ctx, req)
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }
