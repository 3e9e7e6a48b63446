package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/pkg/inflight"
	"github.com/JrMarcco/jreminder/internal/pkg/retry"
	"github.com/JrMarcco/jreminder/internal/repository"
	"github.com/JrMarcco/jreminder/internal/service/conf"
	"github.com/JrMarcco/jreminder/internal/service/consent"
	"github.com/JrMarcco/jreminder/internal/service/escalation"
	"github.com/JrMarcco/jreminder/internal/service/executor"
	"github.com/JrMarcco/jreminder/internal/service/lifecycle"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ Service = (*Dispatcher)(nil)

// Dispatcher 批量发送编排。
//
// 每个患者是一个独立的工作单元并发执行，单个患者的失败（包括 panic）
// 不会影响其它患者，所有单元结束后再汇总结果。
type Dispatcher struct {
	patientRepo      repository.PatientRepo
	notificationRepo repository.NotificationRepo
	escalationSvc    escalation.Service
	sender           Sender
	policies         conf.PolicyProvider
	guard            inflight.Guard
	recorder         *lifecycle.Recorder
	health           *HealthMonitor

	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

// batch 单个批次内共享的只读参数
type batch struct {
	template       domain.Template
	channel        domain.Channel
	policy         retry.Policy
	attemptTimeout time.Duration
	escalateDenial bool

	// 每个批次每个渠道只告警一次
	alerted atomic.Bool
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (domain.BatchResult, error) {
	if err := d.validate(req); err != nil {
		return domain.BatchResult{}, err
	}

	b := d.newBatch(req)
	results := make([]domain.DispatchOutcome, len(req.PatientIds))

	var eg errgroup.Group
	if d.cfg.MaxConcurrency > 0 {
		eg.SetLimit(d.cfg.MaxConcurrency)
	}
	for i, pid := range req.PatientIds {
		eg.Go(func() error {
			results[i] = d.dispatchOne(ctx, b, pid)
			return nil
		})
	}
	// 工作单元从不返回 error
	_ = eg.Wait()

	res := domain.NewBatchResult(results)
	d.logger.Info(
		"[jreminder] batch dispatched",
		zap.String("channel", b.channel.String()),
		zap.String("template", b.template.Name),
		zap.Int("total", len(results)),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Bool("partial", res.Partial),
	)
	return res, nil
}

func (d *Dispatcher) Preview(ctx context.Context, req Request) ([]PreviewResult, error) {
	if err := d.validate(req); err != nil {
		return nil, err
	}

	results := make([]PreviewResult, len(req.PatientIds))

	var eg errgroup.Group
	if d.cfg.MaxConcurrency > 0 {
		eg.SetLimit(d.cfg.MaxConcurrency)
	}
	for i, pid := range req.PatientIds {
		eg.Go(func() error {
			results[i] = d.previewOne(ctx, req, pid)
			return nil
		})
	}
	_ = eg.Wait()
	return results, nil
}

func (d *Dispatcher) previewOne(ctx context.Context, req Request, pid uint64) PreviewResult {
	res := PreviewResult{PatientId: pid}

	patient, err := d.patientRepo.GetById(ctx, pid)
	if err != nil {
		res.Err = err
		return res
	}
	res.HasDestination = patient.Destination(req.Channel) != ""

	decision, err := consent.Evaluate(
		req.Channel, req.Template.Category, patient.Preferences, domain.ActiveConsentTypes(patient.Consents, d.now()),
	)
	if err != nil {
		res.Err = err
		return res
	}
	res.Decision = &decision
	return res
}

func (d *Dispatcher) validate(req Request) error {
	if len(req.PatientIds) == 0 {
		return fmt.Errorf("%w: patient ids should not be empty", errs.ErrInvalidParam)
	}
	if !req.Channel.Validate() {
		return fmt.Errorf("%w: channel = %q", errs.ErrInvalidChannel, req.Channel)
	}
	if !d.sender.Supports(req.Channel) {
		return fmt.Errorf("%w: channel %s is not configured", errs.ErrInvalidChannel, req.Channel)
	}
	if err := req.Template.Validate(); err != nil {
		return err
	}
	if req.Options.Policy != nil && req.Options.Policy.MaxAttempts() < 1 {
		return fmt.Errorf("%w: max attempts = %d", errs.ErrInvalidRetryPolicy, req.Options.Policy.MaxAttempts())
	}
	return nil
}

func (d *Dispatcher) newBatch(req Request) *batch {
	b := &batch{
		template:       req.Template,
		channel:        req.Channel,
		attemptTimeout: d.cfg.AttemptTimeout,
		escalateDenial: d.cfg.EscalateConsentDenial,
	}
	// 策略在批次开始时读取一次，批次执行过程中的配置变更只影响后续批次
	if req.Options.Policy != nil {
		b.policy = *req.Options.Policy
	} else {
		b.policy = d.policies.Policy()
	}
	if req.Options.AttemptTimeout > 0 {
		b.attemptTimeout = req.Options.AttemptTimeout
	}
	if req.Options.EscalateConsentDenial != nil {
		b.escalateDenial = *req.Options.EscalateConsentDenial
	}
	return b
}

// dispatchOne 单个患者的工作单元，所有失败都转换为 DispatchOutcome。
func (d *Dispatcher) dispatchOne(ctx context.Context, b *batch, pid uint64) (out domain.DispatchOutcome) {
	out = domain.DispatchOutcome{
		PatientId:     pid,
		CorrelationId: uuid.NewString(),
	}
	base := lifecycle.EventContext{
		CorrelationId: out.CorrelationId,
		PatientId:     pid,
		Channel:       b.channel,
		TemplateName:  b.template.Name,
		Category:      b.template.Category,
	}

	var sendStarted bool
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Err = fmt.Errorf("%w: %v", errs.ErrAttemptPanicked, r)
			d.logger.Error(
				"[jreminder] dispatch unit panicked",
				zap.String("correlation_id", out.CorrelationId),
				zap.Uint64("patient_id", pid),
				zap.Any("panic", r),
			)
			d.failPanicked(ctx, base, &out, sendStarted)
		}

		result := resultSent
		if !out.Success {
			result = resultFailed
		}
		outcomeTotal.WithLabelValues(b.channel.String(), result).Inc()
	}()

	patient, err := d.patientRepo.GetById(ctx, pid)
	if err != nil {
		out.Err = err
		d.fail(ctx, base, err, nil)
		return out
	}

	decision, err := consent.Evaluate(
		b.channel, b.template.Category, patient.Preferences, domain.ActiveConsentTypes(patient.Consents, d.now()),
	)
	if err != nil {
		out.Err = err
		d.fail(ctx, base, err, nil)
		return out
	}
	out.Consent = &decision

	// 授权拒绝不进入重试流程，不调用任何渠道
	if !decision.Allowed {
		out.Err = fmt.Errorf("%w: %s", errs.ErrConsentDenied, decision.Reason)
		d.fail(ctx, base, out.Err, &decision)
		if b.escalateDenial {
			d.escalateConsentDenial(ctx, base, &decision, out.Err)
			out.HighPriority = true
		}
		return out
	}

	key := inflight.Key(pid, b.template.Name, b.channel.String())
	acquired, err := d.guard.TryAcquire(ctx, key)
	switch {
	case err != nil:
		// 占用检查失败时宁可重复也不漏发
		d.logger.Warn(
			"[jreminder] failed to acquire in-flight guard, dispatch anyway",
			zap.String("correlation_id", out.CorrelationId),
			zap.String("key", key),
			zap.Error(err),
		)
	case !acquired:
		out.Err = fmt.Errorf("%w: key = %s", errs.ErrDispatchInFlight, key)
		d.fail(ctx, base, out.Err, &decision)
		return out
	default:
		defer d.release(ctx, key)
	}

	d.recorder.Emit(ctx, base.With(domain.LifecycleStageSend))
	sendStarted = true

	res := executor.Execute(ctx, executor.Request[domain.SendResult]{
		Policy:         b.policy,
		Attempt:        d.attemptFunc(b, base, patient),
		Observer:       executor.Observers{d.recorder.Observe(base), d.escalationObserver(base)},
		AttemptTimeout: b.attemptTimeout,
	})
	out.Retry = res.FinalState
	out.HighPriority = res.EscalationOpened
	out.Success = res.Success
	if !res.Success {
		out.Err = res.Err
	}

	out.NotificationId = d.saveRecord(ctx, base, res)

	if res.Success {
		ec := base.With(domain.LifecycleStageSuccess)
		ec.Attempt = res.AttemptsUsed
		ec.NotificationId = out.NotificationId
		ec.ProviderCorrelationId = res.Value.ProviderCorrelationId
		d.recorder.Emit(ctx, ec)
	}
	return out
}

func (d *Dispatcher) attemptFunc(b *batch, base lifecycle.EventContext, patient domain.Patient) executor.AttemptFunc[domain.SendResult] {
	return func(ctx context.Context, attempt int32) (domain.SendResult, error) {
		msg := domain.Message{
			CorrelationId: base.CorrelationId,
			PatientId:     base.PatientId,
			Channel:       b.channel,
			Destination:   patient.Destination(b.channel),
			Template:      b.template,
			Attempt:       attempt,
		}

		start := time.Now()
		res, err := d.sender.Send(ctx, msg)
		d.observeAttempt(b, time.Since(start), err)
		return res, err
	}
}

func (d *Dispatcher) observeAttempt(b *batch, latency time.Duration, err error) {
	channel := b.channel.String()
	attemptDuration.WithLabelValues(channel).Observe(latency.Seconds())

	result := resultSuccess
	switch {
	case errs.IsTerminal(err):
		result = resultTerminal
	case err != nil:
		result = resultRetryable
	}
	attemptTotal.WithLabelValues(channel, result).Inc()

	if !d.health.Observe(b.channel, latency, err != nil) {
		return
	}
	if b.alerted.CompareAndSwap(false, true) {
		h := d.health.Health(b.channel)
		d.logger.Error(
			"[jreminder] systemic channel failure detected",
			zap.String("channel", channel),
			zap.Float64("failure_rate", h.FailureRate),
			zap.Duration("avg_latency", h.AvgLatency),
			zap.Duration("max_latency", h.MaxLatency),
		)
	}
}

func (d *Dispatcher) fail(ctx context.Context, base lifecycle.EventContext, err error, decision *domain.ConsentDecision) {
	ec := base.With(domain.LifecycleStageFail)
	ec.Err = err
	ec.Consent = decision
	d.recorder.Emit(ctx, ec)
}

// failPanicked 工作单元 panic 后补齐 fail 事件，已开始发送但未落库的补一条失败记录
func (d *Dispatcher) failPanicked(ctx context.Context, base lifecycle.EventContext, out *domain.DispatchOutcome, sendStarted bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(
				"[jreminder] failed to record panicked dispatch unit",
				zap.String("correlation_id", base.CorrelationId),
				zap.Any("panic", r),
			)
		}
	}()

	d.fail(ctx, base, out.Err, out.Consent)
	if sendStarted && out.NotificationId == 0 {
		out.NotificationId = d.saveRecord(ctx, base, executor.Result[domain.SendResult]{Err: out.Err})
	}
}

// escalateConsentDenial 授权拒绝直接升级，不经过重试流程
func (d *Dispatcher) escalateConsentDenial(
	ctx context.Context, base lifecycle.EventContext, decision *domain.ConsentDecision, cause error,
) {
	ec := base.With(domain.LifecycleStageEscalationOpen)
	ec.Err = cause
	ec.Consent = decision
	d.recorder.Emit(ctx, ec)

	escalationTotal.WithLabelValues(base.Channel.String(), sourceConsent).Inc()
	d.openEscalation(ctx, base, 0, decision.Reason)
}

func (d *Dispatcher) escalationObserver(base lifecycle.EventContext) executor.Observer {
	return &escalationObserver{
		base: base,
		d:    d,
	}
}

func (d *Dispatcher) openEscalation(ctx context.Context, base lifecycle.EventContext, attempt int32, reason string) {
	_, err := d.escalationSvc.Open(context.WithoutCancel(ctx), domain.Escalation{
		CorrelationId: base.CorrelationId,
		PatientId:     base.PatientId,
		Channel:       base.Channel,
		Category:      base.Category,
		TemplateName:  base.TemplateName,
		Attempt:       attempt,
		Reason:        reason,
		OpenedAt:      d.now(),
	})
	if err != nil {
		d.logger.Error(
			"[jreminder] failed to register escalation",
			zap.String("correlation_id", base.CorrelationId),
			zap.Uint64("patient_id", base.PatientId),
			zap.Error(err),
		)
	}
}

// saveRecord 保存通知记录，失败只记录日志，返回记录 id（失败时为 0）
func (d *Dispatcher) saveRecord(ctx context.Context, base lifecycle.EventContext, res executor.Result[domain.SendResult]) uint64 {
	record := domain.NotificationRecord{
		PatientId:     base.PatientId,
		Channel:       base.Channel,
		Category:      base.Category,
		TemplateName:  base.TemplateName,
		CorrelationId: base.CorrelationId,
		Status:        domain.NotificationStatusSent,
		Attempts:      res.AttemptsUsed,
		CreatedAt:     d.now(),
	}
	if res.Success {
		record.ProviderCorrelationId = res.Value.ProviderCorrelationId
	} else {
		record.Status = domain.NotificationStatusFailed
		if res.Err != nil {
			record.ErrMsg = res.Err.Error()
		}
	}

	saved, err := d.notificationRepo.Save(context.WithoutCancel(ctx), record)
	if err != nil {
		recordErrTotal.Inc()
		d.logger.Warn(
			"[jreminder] failed to save notification record",
			zap.String("correlation_id", base.CorrelationId),
			zap.Uint64("patient_id", base.PatientId),
			zap.Error(err),
		)
		return 0
	}
	return saved.Id
}

func (d *Dispatcher) release(ctx context.Context, key string) {
	if err := d.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		d.logger.Warn("[jreminder] failed to release in-flight guard", zap.String("key", key), zap.Error(err))
	}
}

var _ executor.Observer = (*escalationObserver)(nil)

// escalationObserver 执行器打开升级时登记升级工单
type escalationObserver struct {
	executor.NopObserver

	base lifecycle.EventContext
	d    *Dispatcher
}

func (o *escalationObserver) OnEscalationOpen(ctx context.Context, state domain.RetryState, cause error) {
	escalationTotal.WithLabelValues(o.base.Channel.String(), sourceTransport).Inc()

	reason := state.EscalationReason
	if reason == "" && cause != nil {
		reason = cause.Error()
	}
	o.d.openEscalation(ctx, o.base, state.Attempt, reason)
}

func NewDispatcher(
	patientRepo repository.PatientRepo,
	notificationRepo repository.NotificationRepo,
	escalationSvc escalation.Service,
	sender Sender,
	policies conf.PolicyProvider,
	guard inflight.Guard,
	recorder *lifecycle.Recorder,
	health *HealthMonitor,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		patientRepo:      patientRepo,
		notificationRepo: notificationRepo,
		escalationSvc:    escalationSvc,
		sender:           sender,
		policies:         policies,
		guard:            guard,
		recorder:         recorder,
		health:           health,
		cfg:              cfg,
		now:              time.Now,
		logger:           logger,
	}
}
