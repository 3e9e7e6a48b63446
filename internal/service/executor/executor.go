package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/pkg/retry"
)

// AttemptFunc 单次发送尝试，attempt 从 1 开始。
// 返回 errs.Terminal 包装的错误表示重试也不会成功。
type AttemptFunc[T any] func(ctx context.Context, attempt int32) (T, error)

type Request[T any] struct {
	Policy   retry.Policy
	Attempt  AttemptFunc[T]
	Observer Observer
	// AttemptTimeout 单次尝试超时时间，0 表示不限制。超时按可重试失败处理。
	AttemptTimeout time.Duration
}

type Result[T any] struct {
	Success      bool
	Value        T
	AttemptsUsed int32
	// FinalState 最后一次失败对应的重试状态，首次尝试即成功时为 nil
	FinalState       *domain.RetryState
	EscalationOpened bool
	Err              error
}

// Execute 串行执行 1..MaxAttempts 次尝试。
//
// 成功立即返回；失败时计算重试状态并通知观察者，非终态则等待退避时间后继续，
// 终态且需要升级时调用一次 OnEscalationOpen 并停止。
// ctx 取消后不再发起新的尝试，正在进行的尝试不受影响。
func Execute[T any](ctx context.Context, req Request[T]) Result[T] {
	return execute(ctx, req, realClock{})
}

type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func execute[T any](ctx context.Context, req Request[T], clk clock) Result[T] {
	var res Result[T]

	maxAttempts := req.Policy.MaxAttempts()
	if maxAttempts < 1 {
		res.Err = fmt.Errorf("%w: max attempts = %d", errs.ErrInvalidRetryPolicy, maxAttempts)
		return res
	}
	if req.Attempt == nil {
		res.Err = fmt.Errorf("%w: attempt func should not be nil", errs.ErrInvalidParam)
		return res
	}

	obs := req.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	for attempt := int32(1); attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Err = canceledErr(ctxErr, res.Err)
			return res
		}

		val, err := invoke(ctx, req, attempt)
		res.AttemptsUsed = attempt
		if err == nil {
			res.Success = true
			res.Value = val
			res.Err = nil
			return res
		}
		res.Err = err

		now := clk.Now()
		var state domain.RetryState
		var stateErr error
		if errs.IsTerminal(err) {
			state, stateErr = req.Policy.ForImmediateEscalation(attempt, err.Error(), now)
		} else {
			state, stateErr = req.Policy.ForAttempt(attempt, now)
		}
		if stateErr != nil {
			res.Err = stateErr
			return res
		}
		res.FinalState = &state

		obs.OnAttemptFailure(ctx, Failure{
			Attempt: attempt,
			Err:     err,
			State:   state,
		})

		if state.Terminal {
			if state.EscalationReady {
				obs.OnEscalationOpen(ctx, state, err)
				res.EscalationOpened = true
			}
			return res
		}

		if sleepErr := clk.Sleep(ctx, state.NextRetryAt.Sub(now)); sleepErr != nil {
			res.Err = canceledErr(sleepErr, err)
			return res
		}
		obs.OnRetryScheduled(ctx, state)
	}
	return res
}

func invoke[T any](ctx context.Context, req Request[T], attempt int32) (val T, err error) {
	// 批次取消不影响正在进行的尝试，只由单次超时约束
	attemptCtx := context.WithoutCancel(ctx)
	if req.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(attemptCtx, req.AttemptTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errs.Terminal(fmt.Errorf("%w: %v", errs.ErrAttemptPanicked, r))
		}
	}()
	return req.Attempt(attemptCtx, attempt)
}

func canceledErr(ctxErr error, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%w: %w", errs.ErrDispatchCanceled, ctxErr)
	}
	return fmt.Errorf("%w: %w, last attempt error: %w", errs.ErrDispatchCanceled, ctxErr, lastErr)
}
