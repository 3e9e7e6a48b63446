package executor

import (
	"context"

	"github.com/JrMarcco/jreminder/internal/domain"
)

// Failure 一次失败尝试
type Failure struct {
	Attempt int32
	Err     error
	State   domain.RetryState
}

// Observer 执行器的观察者，用于把日志、审计、持久化与重试流程解耦。
//
// OnEscalationClosed 由执行器的调用方在人工或自动流程处理完升级后调用，
// 执行器本身从不调用。
type Observer interface {
	OnAttemptFailure(ctx context.Context, f Failure)
	OnRetryScheduled(ctx context.Context, state domain.RetryState)
	OnEscalationOpen(ctx context.Context, state domain.RetryState, cause error)
	OnEscalationClosed(ctx context.Context, esc domain.Escalation)
}

var _ Observer = NopObserver{}

type NopObserver struct{}

func (NopObserver) OnAttemptFailure(context.Context, Failure) {}

func (NopObserver) OnRetryScheduled(context.Context, domain.RetryState) {}

func (NopObserver) OnEscalationOpen(context.Context, domain.RetryState, error) {}

func (NopObserver) OnEscalationClosed(context.Context, domain.Escalation) {}

var _ Observer = (Observers)(nil)

// Observers 按顺序通知多个观察者
type Observers []Observer

func (os Observers) OnAttemptFailure(ctx context.Context, f Failure) {
	for _, o := range os {
		o.OnAttemptFailure(ctx, f)
	}
}

func (os Observers) OnRetryScheduled(ctx context.Context, state domain.RetryState) {
	for _, o := range os {
		o.OnRetryScheduled(ctx, state)
	}
}

func (os Observers) OnEscalationOpen(ctx context.Context, state domain.RetryState, cause error) {
	for _, o := range os {
		o.OnEscalationOpen(ctx, state, cause)
	}
}

func (os Observers) OnEscalationClosed(ctx context.Context, esc domain.Escalation) {
	for _, o := range os {
		o.OnEscalationClosed(ctx, esc)
	}
}
