package domain

import "time"

// RetryStage 重试状态机所处阶段。
//
// 迁移路径：SCHEDULED -> RETRYING -> {ESCALATED | EXHAUSTED}，
// 或者类别性失败直接 SCHEDULED -> ESCALATED，不会回到 SCHEDULED。
type RetryStage string

const (
	RetryStageScheduled RetryStage = "SCHEDULED"
	RetryStageRetrying  RetryStage = "RETRYING"
	RetryStageEscalated RetryStage = "ESCALATED"
	RetryStageExhausted RetryStage = "EXHAUSTED"
)

func (s RetryStage) String() string {
	return string(s)
}

func (s RetryStage) IsTerminal() bool {
	return s == RetryStageEscalated || s == RetryStageExhausted
}

// RetryState 每次尝试失败后重新计算得到的重试状态，只读。
type RetryState struct {
	Attempt           int32      `json:"attempt"`
	MaxAttempts       int32      `json:"max_attempts"`
	RemainingAttempts int32      `json:"remaining_attempts"`
	NextAttempt       int32      `json:"next_attempt,omitempty"` // 终态时为 0
	NextRetryAt       *time.Time `json:"next_retry_at,omitempty"`
	EscalationReady   bool       `json:"escalation_ready"`
	EscalationReason  string     `json:"escalation_reason,omitempty"`
	Stage             RetryStage `json:"state"`
	Terminal          bool       `json:"terminal"`
}
