package retry

import (
	"fmt"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
)

// NoEscalation 瞬时失败耗尽次数后不升级
const NoEscalation int32 = -1

// BackoffFunc 根据失败的尝试序号（从 1 开始）计算下一次重试前的等待时间
type BackoffFunc func(attempt int32) time.Duration

// Policy 重试策略，构造后不可修改，可在多个 goroutine 间共享。
type Policy struct {
	maxAttempts         int32
	backoff             BackoffFunc
	escalationThreshold int32
}

func (p Policy) MaxAttempts() int32 {
	return p.maxAttempts
}

func (p Policy) EscalationThreshold() int32 {
	return p.escalationThreshold
}

func (p Policy) Backoff(attempt int32) time.Duration {
	if p.backoff == nil {
		return 0
	}
	if d := p.backoff(attempt); d > 0 {
		return d
	}
	return 0
}

// ForAttempt 瞬时失败（网络、超时、供应商错误）时的重试状态。
//
// 剩余次数降到升级阈值时进入 ESCALATED，次数用尽且不升级时进入 EXHAUSTED，
// 否则计算下一次重试时间。
func (p Policy) ForAttempt(attempt int32, now time.Time) (domain.RetryState, error) {
	if err := p.check(attempt); err != nil {
		return domain.RetryState{}, err
	}

	remaining := p.maxAttempts - attempt
	state := domain.RetryState{
		Attempt:           attempt,
		MaxAttempts:       p.maxAttempts,
		RemainingAttempts: remaining,
	}

	switch {
	case p.escalationThreshold >= 0 && remaining <= p.escalationThreshold:
		state.EscalationReady = true
		state.EscalationReason = p.transientReason(attempt, remaining)
		state.Stage = domain.RetryStageEscalated
		state.Terminal = true
	case remaining <= 0:
		state.Stage = domain.RetryStageExhausted
		state.Terminal = true
	default:
		nextRetryAt := now.Add(p.Backoff(attempt))
		state.NextRetryAt = &nextRetryAt
		state.NextAttempt = attempt + 1
		state.Stage = domain.RetryStageRetrying
		if attempt == 1 {
			state.Stage = domain.RetryStageScheduled
		}
	}
	return state, nil
}

// ForImmediateEscalation 类别性失败（授权拒绝、不可恢复的参数错误）时的重试状态。
//
// 不论剩余次数多少都直接升级并进入终态。
func (p Policy) ForImmediateEscalation(attempt int32, reason string, now time.Time) (domain.RetryState, error) {
	if err := p.check(attempt); err != nil {
		return domain.RetryState{}, err
	}
	if reason == "" {
		reason = "categorical failure, retry cannot succeed"
	}
	return domain.RetryState{
		Attempt:           attempt,
		MaxAttempts:       p.maxAttempts,
		RemainingAttempts: p.maxAttempts - attempt,
		EscalationReady:   true,
		EscalationReason:  reason,
		Stage:             domain.RetryStageEscalated,
		Terminal:          true,
	}, nil
}

func (p Policy) check(attempt int32) error {
	if p.maxAttempts < 1 {
		return fmt.Errorf("%w: max attempts = %d", errs.ErrInvalidRetryPolicy, p.maxAttempts)
	}
	if attempt < 1 || attempt > p.maxAttempts {
		return fmt.Errorf("%w: attempt = %d, max attempts = %d", errs.ErrInvalidAttempt, attempt, p.maxAttempts)
	}
	return nil
}

func (p Policy) transientReason(attempt, remaining int32) string {
	if remaining <= 0 {
		return fmt.Sprintf("delivery failed after %d attempts, retry budget exhausted", attempt)
	}
	return fmt.Sprintf(
		"delivery failed %d times, remaining attempts %d reached escalation threshold %d",
		attempt, remaining, p.escalationThreshold,
	)
}

// NewPolicy 创建重试策略，maxAttempts 必须 >= 1，escalationThreshold 必须小于 maxAttempts。
func NewPolicy(maxAttempts int32, backoff BackoffFunc, escalationThreshold int32) (Policy, error) {
	if maxAttempts < 1 {
		return Policy{}, fmt.Errorf("%w: max attempts should be greater than 0", errs.ErrInvalidRetryPolicy)
	}
	if escalationThreshold >= maxAttempts {
		return Policy{}, fmt.Errorf(
			"%w: escalation threshold %d should be less than max attempts %d",
			errs.ErrInvalidRetryPolicy, escalationThreshold, maxAttempts,
		)
	}
	if escalationThreshold < 0 {
		escalationThreshold = NoEscalation
	}
	return Policy{
		maxAttempts:         maxAttempts,
		backoff:             backoff,
		escalationThreshold: escalationThreshold,
	}, nil
}

// FixedBackoff 固定间隔退避
func FixedBackoff(interval time.Duration) BackoffFunc {
	return func(int32) time.Duration {
		return interval
	}
}
