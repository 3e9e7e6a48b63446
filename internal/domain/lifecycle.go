package domain

import "time"

// LifecycleStage 发送生命周期阶段
type LifecycleStage string

const (
	LifecycleStageSend             LifecycleStage = "send"
	LifecycleStageSuccess          LifecycleStage = "success"
	LifecycleStageFail             LifecycleStage = "fail"
	LifecycleStageEscalationOpen   LifecycleStage = "escalation_open"
	LifecycleStageEscalationClosed LifecycleStage = "escalation_closed"
)

func (s LifecycleStage) String() string {
	return string(s)
}

// LifecycleEvent 生命周期审计事件，只追加、创建后不再修改。
//
// 某阶段不存在的字段保持零值并在序列化时省略。
type LifecycleEvent struct {
	Stage                 LifecycleStage   `json:"stage"`
	CorrelationId         string           `json:"correlation_id"`
	PatientId             uint64           `json:"patient_id"`
	Channel               Channel          `json:"channel"`
	TemplateName          string           `json:"template_name"`
	Category              Category         `json:"category"`
	Attempt               int32            `json:"attempt,omitempty"`
	NotificationId        uint64           `json:"notification_id,omitempty"`
	ProviderCorrelationId string           `json:"provider_correlation_id,omitempty"`
	Error                 string           `json:"error,omitempty"`
	RetryState            *RetryState      `json:"retry_state,omitempty"`
	Consent               *ConsentDecision `json:"consent,omitempty"`
	Timestamp             time.Time        `json:"timestamp"`
}
