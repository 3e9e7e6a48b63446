package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/service/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorder_Record(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := &memSink{}
	r := NewRecorder(sink, zap.New(core))

	ctx := context.Background()
	for _, stage := range []domain.LifecycleStage{
		domain.LifecycleStageSend,
		domain.LifecycleStageFail,
		domain.LifecycleStageEscalationOpen,
	} {
		r.Emit(ctx, EventContext{Stage: stage, CorrelationId: "c-1", PatientId: 7})
	}

	entries := logs.FilterMessage("[jreminder] notification lifecycle").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "c-1", entries[0].ContextMap()["correlation_id"])
	assert.Equal(t, uint64(7), entries[0].ContextMap()["patient_id"])

	assert.Len(t, sink.events, 3)
}

func TestRecorder_SinkFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ok := &memSink{}
	r := NewRecorder(MultiSink{&failSink{}, ok}, zap.New(core))

	evt := r.Emit(context.Background(), EventContext{Stage: domain.LifecycleStageSuccess, CorrelationId: "c-2"})

	assert.Equal(t, domain.LifecycleStageSuccess, evt.Stage)
	require.Len(t, ok.events, 1)
	assert.Equal(t, evt, ok.events[0])

	failed := logs.FilterMessage("[jreminder] failed to persist lifecycle event").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
}

func TestRecorder_CanceledContext(t *testing.T) {
	t.Parallel()

	sink := &memSink{}
	r := NewRecorder(sink, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Emit(ctx, EventContext{Stage: domain.LifecycleStageFail})
	require.Len(t, sink.events, 1)
	assert.NoError(t, sink.ctxErr)
}

func TestRecorder_NilSink(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil, zap.NewNop())
	assert.NotPanics(t, func() {
		r.Emit(context.Background(), EventContext{Stage: domain.LifecycleStageSend})
	})
}

func TestObserver(t *testing.T) {
	t.Parallel()

	sink := &memSink{}
	r := NewRecorder(sink, zap.NewNop())
	base := EventContext{
		CorrelationId: "c-3",
		PatientId:     3,
		Channel:       domain.ChannelWhatsApp,
		TemplateName:  "medication_reminder",
		Category:      domain.CategoryMedication,
	}
	obs := r.Observe(base)

	ctx := context.Background()
	cause := errors.New("provider unavailable")
	state := domain.RetryState{
		Attempt:          2,
		MaxAttempts:      2,
		EscalationReady:  true,
		EscalationReason: "retry budget exhausted",
		Stage:            domain.RetryStageEscalated,
		Terminal:         true,
	}
	closedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	obs.OnAttemptFailure(ctx, executor.Failure{Attempt: 2, Err: cause, State: state})
	obs.OnRetryScheduled(ctx, state)
	obs.OnEscalationOpen(ctx, state, cause)
	obs.OnEscalationClosed(ctx, domain.Escalation{Attempt: 2, ClosedAt: &closedAt})

	require.Len(t, sink.events, 3)

	fail := sink.events[0]
	assert.Equal(t, domain.LifecycleStageFail, fail.Stage)
	assert.Equal(t, "c-3", fail.CorrelationId)
	assert.Equal(t, domain.ChannelWhatsApp, fail.Channel)
	assert.Equal(t, int32(2), fail.Attempt)
	assert.Equal(t, "provider unavailable", fail.Error)
	require.NotNil(t, fail.RetryState)
	assert.True(t, fail.RetryState.Terminal)

	open := sink.events[1]
	assert.Equal(t, domain.LifecycleStageEscalationOpen, open.Stage)
	assert.Equal(t, "retry budget exhausted", open.RetryState.EscalationReason)

	closed := sink.events[2]
	assert.Equal(t, domain.LifecycleStageEscalationClosed, closed.Stage)
	assert.Equal(t, closedAt, closed.Timestamp)
	assert.Nil(t, closed.RetryState)
}

type memSink struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
	ctxErr error
}

func (s *memSink) Append(ctx context.Context, evt domain.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	s.ctxErr = ctx.Err()
	return nil
}

type failSink struct{}

func (failSink) Append(context.Context, domain.LifecycleEvent) error {
	return errors.New("connection refused")
}
