package lifecycle

import (
	"context"
	"errors"

	"github.com/JrMarcco/jreminder/internal/domain"
	"go.uber.org/zap"
)

// Sink 生命周期事件的持久化目标
type Sink interface {
	Append(ctx context.Context, evt domain.LifecycleEvent) error
}

var _ Sink = (MultiSink)(nil)

// MultiSink 依次写入所有 sink，单个 sink 失败不影响其它 sink。
type MultiSink []Sink

func (ms MultiSink) Append(ctx context.Context, evt domain.LifecycleEvent) error {
	var errList []error
	for _, s := range ms {
		if err := s.Append(ctx, evt); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Recorder 记录生命周期事件：先写结构化日志，再写入 sink。
//
// sink 写入失败只记录日志，不会影响发送结果。
type Recorder struct {
	sink   Sink
	logger *zap.Logger
}

// Emit 构造并记录事件
func (r *Recorder) Emit(ctx context.Context, ec EventContext) domain.LifecycleEvent {
	evt := Build(ec)
	r.Record(ctx, evt)
	return evt
}

func (r *Recorder) Record(ctx context.Context, evt domain.LifecycleEvent) {
	eventTotal.WithLabelValues(evt.Stage.String()).Inc()

	if ce := r.logger.Check(LevelOf(evt.Stage), "[jreminder] notification lifecycle"); ce != nil {
		ce.Write(fieldsOf(evt)...)
	}

	if r.sink == nil {
		return
	}
	// 批次被取消时审计事件依然要落库
	if err := r.sink.Append(context.WithoutCancel(ctx), evt); err != nil {
		sinkErrTotal.Inc()
		r.logger.Warn(
			"[jreminder] failed to persist lifecycle event",
			zap.String("stage", evt.Stage.String()),
			zap.String("correlation_id", evt.CorrelationId),
			zap.Error(err),
		)
	}
}

func fieldsOf(evt domain.LifecycleEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("stage", evt.Stage.String()),
		zap.String("correlation_id", evt.CorrelationId),
		zap.Uint64("patient_id", evt.PatientId),
		zap.String("channel", evt.Channel.String()),
		zap.String("template", evt.TemplateName),
		zap.String("category", evt.Category.String()),
		zap.Time("timestamp", evt.Timestamp),
	}
	if evt.Attempt > 0 {
		fields = append(fields, zap.Int32("attempt", evt.Attempt))
	}
	if evt.NotificationId != 0 {
		fields = append(fields, zap.Uint64("notification_id", evt.NotificationId))
	}
	if evt.ProviderCorrelationId != "" {
		fields = append(fields, zap.String("provider_correlation_id", evt.ProviderCorrelationId))
	}
	if evt.Error != "" {
		fields = append(fields, zap.String("error", evt.Error))
	}
	if evt.RetryState != nil {
		fields = append(fields, zap.Any("retry_state", evt.RetryState))
	}
	if evt.Consent != nil {
		fields = append(fields, zap.Any("consent", evt.Consent))
	}
	return fields
}

func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	return &Recorder{
		sink:   sink,
		logger: logger,
	}
}
