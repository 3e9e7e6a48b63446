package lifecycle

import (
	"slices"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"go.uber.org/zap/zapcore"
)

// EventContext 构造生命周期事件需要的上下文
type EventContext struct {
	Stage                 domain.LifecycleStage
	CorrelationId         string
	PatientId             uint64
	Channel               domain.Channel
	TemplateName          string
	Category              domain.Category
	Attempt               int32
	NotificationId        uint64
	ProviderCorrelationId string
	Err                   error
	RetryState            *domain.RetryState
	Consent               *domain.ConsentDecision
	// At 事件时间，零值时取当前时间
	At time.Time
}

// With 以当前上下文为基础生成指定阶段的上下文，只复制公共字段。
func (ec EventContext) With(stage domain.LifecycleStage) EventContext {
	return EventContext{
		Stage:         stage,
		CorrelationId: ec.CorrelationId,
		PatientId:     ec.PatientId,
		Channel:       ec.Channel,
		TemplateName:  ec.TemplateName,
		Category:      ec.Category,
	}
}

// Build 根据上下文构造事件。
//
// 纯函数，不做任何 IO。RetryState 与 Consent 会被深拷贝，
// 之后修改入参不影响已构造的事件。
func Build(ec EventContext) domain.LifecycleEvent {
	ts := ec.At
	if ts.IsZero() {
		ts = time.Now()
	}

	evt := domain.LifecycleEvent{
		Stage:                 ec.Stage,
		CorrelationId:         ec.CorrelationId,
		PatientId:             ec.PatientId,
		Channel:               ec.Channel,
		TemplateName:          ec.TemplateName,
		Category:              ec.Category,
		Attempt:               ec.Attempt,
		NotificationId:        ec.NotificationId,
		ProviderCorrelationId: ec.ProviderCorrelationId,
		Timestamp:             ts.UTC(),
	}
	if ec.Err != nil {
		evt.Error = ec.Err.Error()
	}
	if ec.RetryState != nil {
		rs := *ec.RetryState
		if rs.NextRetryAt != nil {
			next := *rs.NextRetryAt
			rs.NextRetryAt = &next
		}
		evt.RetryState = &rs
	}
	if ec.Consent != nil {
		cd := *ec.Consent
		cd.RequiredConsentTypes = slices.Clone(cd.RequiredConsentTypes)
		evt.Consent = &cd
	}
	return evt
}

// LevelOf 阶段对应的日志级别
func LevelOf(stage domain.LifecycleStage) zapcore.Level {
	switch stage {
	case domain.LifecycleStageFail:
		return zapcore.WarnLevel
	case domain.LifecycleStageEscalationOpen:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
