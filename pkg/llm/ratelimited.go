package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider caps the rate of outbound calls to the wrapped backend.
type RateLimitedProvider struct {
	next    LLMProvider
	limiter *rate.Limiter
}

var _ LLMProvider = &RateLimitedProvider{}

// NewRateLimitedProvider returns next unchanged when perSecond is not positive.
func NewRateLimitedProvider(next LLMProvider, perSecond float64, burst int) LLMProvider {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (p *RateLimitedProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.Chat(ctx, history, opts...)
}

func (p *RateLimitedProvider) Stream(ctx context.Context, history []Message, opts ...Option) (Stream, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.next.Stream(ctx, history, opts...)
}
