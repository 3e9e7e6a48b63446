package dispatch

import (
	"context"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/pkg/retry"
)

// Service 批量发送入口
type Service interface {
	// Dispatch 只有批次本身非法（患者列表为空、渠道不支持、模板非法）时返回 error，
	// 单个患者的失败体现在 BatchResult 中。
	Dispatch(ctx context.Context, req Request) (domain.BatchResult, error)
	// Preview 只做授权判定，不发送
	Preview(ctx context.Context, req Request) ([]PreviewResult, error)
}

// Sender 渠道发送，channel.Dispatcher 实现了该接口
type Sender interface {
	Send(ctx context.Context, msg domain.Message) (domain.SendResult, error)
	Supports(c domain.Channel) bool
}

type Request struct {
	PatientIds []uint64
	Template   domain.Template
	Channel    domain.Channel
	Options    Options
}

// Options 单个批次的可选参数，零值表示使用全局配置
type Options struct {
	Policy                *retry.Policy
	AttemptTimeout        time.Duration
	EscalateConsentDenial *bool
}

// Config 发送全局配置
type Config struct {
	MaxConcurrency        int           `mapstructure:"max_concurrency"`
	AttemptTimeout        time.Duration `mapstructure:"attempt_timeout"`
	EscalateConsentDenial bool          `mapstructure:"escalate_consent_denial"`
}

type PreviewResult struct {
	PatientId      uint64                  `json:"patient_id"`
	Decision       *domain.ConsentDecision `json:"decision,omitempty"`
	HasDestination bool                    `json:"has_destination"`
	Err            error                   `json:"-"`
}
