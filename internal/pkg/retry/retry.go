package retry

import (
	"fmt"
	"time"

	"github.com/JrMarcco/easy-kit/retry"
	"github.com/JrMarcco/jreminder/internal/errs"
)

const (
	TypeFixedInterval      = "fixed_interval"
	TypeExponentialBackoff = "exponential_backoff"
)

// Config 退避策略配置
type Config struct {
	Type               string                    `json:"type" mapstructure:"type"`
	FixedInterval      *FixedIntervalConfig      `json:"fixed_interval" mapstructure:"fixed_interval"`
	ExponentialBackoff *ExponentialBackoffConfig `json:"exponential_backoff" mapstructure:"exponential_backoff"`
}

type ExponentialBackoffConfig struct {
	InitInterval time.Duration `json:"init_interval" mapstructure:"init_interval"`
	MaxInterval  time.Duration `json:"max_interval" mapstructure:"max_interval"`
	MaxTimes     int32         `json:"max_times" mapstructure:"max_times"`
}

type FixedIntervalConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	MaxTimes int32         `json:"max_times" mapstructure:"max_times"`
}

func NewRetryStrategy(cfg Config) (retry.Strategy, error) {
	switch cfg.Type {
	case TypeFixedInterval:
		if cfg.FixedInterval == nil {
			return nil, fmt.Errorf("%w: fixed interval config is missing", errs.ErrInvalidRetryPolicy)
		}
		return retry.NewFixedIntervalStrategy(cfg.FixedInterval.Interval, cfg.FixedInterval.MaxTimes)
	case TypeExponentialBackoff:
		if cfg.ExponentialBackoff == nil {
			return nil, fmt.Errorf("%w: exponential backoff config is missing", errs.ErrInvalidRetryPolicy)
		}
		return retry.NewExponentialBackoffStrategy(
			cfg.ExponentialBackoff.InitInterval,
			cfg.ExponentialBackoff.MaxInterval,
			cfg.ExponentialBackoff.MaxTimes,
		)
	default:
		return nil, fmt.Errorf("%w: unknown retry strategy type: %s", errs.ErrInvalidRetryPolicy, cfg.Type)
	}
}

// PolicyConfig 重试策略配置
type PolicyConfig struct {
	MaxAttempts int32 `json:"max_attempts" mapstructure:"max_attempts"`
	// EscalationThreshold 剩余次数降到该值时升级，0 表示次数用尽才升级，负数表示瞬时失败永不升级
	EscalationThreshold int32  `json:"escalation_threshold" mapstructure:"escalation_threshold"`
	Backoff             Config `json:"backoff" mapstructure:"backoff"`
}

func NewPolicyFromConfig(cfg PolicyConfig) (Policy, error) {
	if _, err := NewRetryStrategy(cfg.Backoff); err != nil {
		return Policy{}, err
	}
	if maxTimes := cfg.Backoff.maxTimes(); maxTimes > 0 && maxTimes < cfg.MaxAttempts-1 {
		return Policy{}, fmt.Errorf(
			"%w: backoff max times %d should cover %d retries",
			errs.ErrInvalidRetryPolicy, maxTimes, cfg.MaxAttempts-1,
		)
	}
	return NewPolicy(cfg.MaxAttempts, BackoffOf(cfg.Backoff), cfg.EscalationThreshold)
}

func (c Config) maxTimes() int32 {
	switch {
	case c.Type == TypeFixedInterval && c.FixedInterval != nil:
		return c.FixedInterval.MaxTimes
	case c.Type == TypeExponentialBackoff && c.ExponentialBackoff != nil:
		return c.ExponentialBackoff.MaxTimes
	}
	return 0
}

// BackoffOf 按配置计算第 attempt 次失败后的退避时间，第 attempt 次失败对应第 attempt 次重试。
// easy-kit 的策略带状态，每次计算都新建。
func BackoffOf(cfg Config) BackoffFunc {
	return func(attempt int32) time.Duration {
		if attempt < 1 {
			return 0
		}
		strategy, err := NewRetryStrategy(cfg)
		if err != nil {
			return 0
		}
		interval, ok := strategy.NextWithRetried(attempt)
		if !ok {
			return 0
		}
		return interval
	}
}
