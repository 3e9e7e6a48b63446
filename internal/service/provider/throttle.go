package provider

import (
	"context"
	"fmt"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"golang.org/x/time/rate"
)

var _ Provider = (*Throttled)(nil)

// Throttled 按供应商限流，等待令牌期间 ctx 超时视为可重试失败。
type Throttled struct {
	Provider
	limiter *rate.Limiter
}

func (t *Throttled) Send(ctx context.Context, msg domain.Message) (domain.SendResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return domain.SendResult{}, errs.Retryable(
			fmt.Errorf("%w: provider %s throttled: %w", errs.ErrFailedToSend, t.Name(), err),
		)
	}
	return t.Provider.Send(ctx, msg)
}

// NewThrottled qps <= 0 时不限流，直接返回原供应商。
func NewThrottled(p Provider, qps float64, burst int) Provider {
	if qps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(qps), burst),
	}
}
