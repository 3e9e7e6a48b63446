package lifecycle

import (
	"context"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/service/executor"
	"go.uber.org/zap"
)

var _ executor.Observer = (*Observer)(nil)

// Observer 把执行器的回调转换为生命周期事件
type Observer struct {
	base     EventContext
	recorder *Recorder
}

func (o *Observer) OnAttemptFailure(ctx context.Context, f executor.Failure) {
	ec := o.base.With(domain.LifecycleStageFail)
	ec.Attempt = f.Attempt
	ec.Err = f.Err
	ec.RetryState = &f.State
	o.recorder.Emit(ctx, ec)
}

func (o *Observer) OnRetryScheduled(_ context.Context, state domain.RetryState) {
	fields := []zap.Field{
		zap.String("correlation_id", o.base.CorrelationId),
		zap.Uint64("patient_id", o.base.PatientId),
		zap.Int32("next_attempt", state.NextAttempt),
	}
	if state.NextRetryAt != nil {
		fields = append(fields, zap.Time("next_retry_at", *state.NextRetryAt))
	}
	o.recorder.logger.Debug("[jreminder] retry scheduled", fields...)
}

func (o *Observer) OnEscalationOpen(ctx context.Context, state domain.RetryState, cause error) {
	ec := o.base.With(domain.LifecycleStageEscalationOpen)
	ec.Attempt = state.Attempt
	ec.Err = cause
	ec.RetryState = &state
	o.recorder.Emit(ctx, ec)
}

func (o *Observer) OnEscalationClosed(ctx context.Context, esc domain.Escalation) {
	ec := o.base.With(domain.LifecycleStageEscalationClosed)
	ec.Attempt = esc.Attempt
	if esc.ClosedAt != nil {
		ec.At = *esc.ClosedAt
	}
	o.recorder.Emit(ctx, ec)
}

// Observe 为一次发送创建观察者，base 提供关联 id、患者、渠道等公共字段。
func (r *Recorder) Observe(base EventContext) *Observer {
	return &Observer{
		base:     base,
		recorder: r,
	}
}
