package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransport = errors.New("connection reset by peer")

func TestExecute(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name        string
		maxAttempts int32
		threshold   int32
		outcomes    []error

		wantSuccess   bool
		wantAttempts  int32
		wantFailures  int
		wantScheduled int
		wantEscalated int
		wantStage     domain.RetryStage
		wantErr       error
	}{
		{
			name:          "success on first attempt",
			maxAttempts:   3,
			outcomes:      []error{nil},
			wantSuccess:   true,
			wantAttempts:  1,
			wantFailures:  0,
			wantScheduled: 0,
			wantEscalated: 0,
		}, {
			name:          "fail twice then succeed",
			maxAttempts:   3,
			outcomes:      []error{errTransport, errTransport, nil},
			wantSuccess:   true,
			wantAttempts:  3,
			wantFailures:  2,
			wantScheduled: 2,
			wantEscalated: 0,
			wantStage:     domain.RetryStageRetrying,
		}, {
			name:          "always fail escalates once",
			maxAttempts:   2,
			outcomes:      []error{errTransport, errTransport},
			wantSuccess:   false,
			wantAttempts:  2,
			wantFailures:  2,
			wantScheduled: 1,
			wantEscalated: 1,
			wantStage:     domain.RetryStageEscalated,
			wantErr:       errTransport,
		}, {
			name:          "always fail without escalation",
			maxAttempts:   3,
			threshold:     retry.NoEscalation,
			outcomes:      []error{errTransport, errTransport, errTransport},
			wantSuccess:   false,
			wantAttempts:  3,
			wantFailures:  3,
			wantScheduled: 2,
			wantEscalated: 0,
			wantStage:     domain.RetryStageExhausted,
			wantErr:       errTransport,
		}, {
			name:          "terminal error escalates immediately",
			maxAttempts:   5,
			outcomes:      []error{errs.Terminal(errs.ErrMissingDestination)},
			wantSuccess:   false,
			wantAttempts:  1,
			wantFailures:  1,
			wantScheduled: 0,
			wantEscalated: 1,
			wantStage:     domain.RetryStageEscalated,
			wantErr:       errs.ErrMissingDestination,
		}, {
			name:          "retryable tagged error then terminal",
			maxAttempts:   5,
			outcomes:      []error{errs.Retryable(errTransport), errs.Terminal(errs.ErrFailedToSend)},
			wantSuccess:   false,
			wantAttempts:  2,
			wantFailures:  2,
			wantScheduled: 1,
			wantEscalated: 1,
			wantStage:     domain.RetryStageEscalated,
			wantErr:       errs.ErrFailedToSend,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			policy, err := retry.NewPolicy(tc.maxAttempts, retry.FixedBackoff(time.Second), tc.threshold)
			require.NoError(t, err)

			obs := &recordingObserver{}
			clk := newFakeClock()
			res := execute(context.Background(), Request[string]{
				Policy:   policy,
				Attempt:  scripted(tc.outcomes),
				Observer: obs,
			}, clk)

			assert.Equal(t, tc.wantSuccess, res.Success)
			assert.Equal(t, tc.wantAttempts, res.AttemptsUsed)
			assert.Len(t, obs.failures, tc.wantFailures)
			assert.Len(t, obs.scheduled, tc.wantScheduled)
			assert.Len(t, obs.escalations, tc.wantEscalated)
			assert.Len(t, clk.slept, tc.wantScheduled)

			if tc.wantSuccess {
				assert.NoError(t, res.Err)
				assert.Equal(t, "ok", res.Value)
			} else {
				assert.ErrorIs(t, res.Err, tc.wantErr)
			}

			if tc.wantStage == "" {
				assert.Nil(t, res.FinalState)
			} else {
				require.NotNil(t, res.FinalState)
				assert.Equal(t, tc.wantStage, res.FinalState.Stage)
			}

			assert.Equal(t, tc.wantEscalated == 1, res.EscalationOpened)
			for _, esc := range obs.escalations {
				assert.True(t, esc.EscalationReady)
				assert.NotEmpty(t, esc.EscalationReason)
			}
		})
	}
}

func TestExecute_AttemptCap(t *testing.T) {
	t.Parallel()

	for maxAttempts := int32(1); maxAttempts <= 8; maxAttempts++ {
		for _, threshold := range []int32{retry.NoEscalation, 0} {
			policy, err := retry.NewPolicy(maxAttempts, retry.FixedBackoff(time.Millisecond), threshold)
			require.NoError(t, err)

			calls := int32(0)
			obs := &recordingObserver{}
			res := execute(context.Background(), Request[struct{}]{
				Policy: policy,
				Attempt: func(_ context.Context, attempt int32) (struct{}, error) {
					calls++
					assert.Equal(t, calls, attempt)
					return struct{}{}, errTransport
				},
				Observer: obs,
			}, newFakeClock())

			assert.Equal(t, maxAttempts, calls)
			assert.Equal(t, maxAttempts, res.AttemptsUsed)
			assert.LessOrEqual(t, len(obs.escalations), 1)
		}
	}
}

func TestExecute_BackoffDelay(t *testing.T) {
	t.Parallel()

	backoff := func(attempt int32) time.Duration {
		return time.Duration(attempt) * 100 * time.Millisecond
	}
	policy, err := retry.NewPolicy(4, backoff, retry.NoEscalation)
	require.NoError(t, err)

	clk := newFakeClock()
	res := execute(context.Background(), Request[string]{
		Policy:  policy,
		Attempt: scripted([]error{errTransport, errTransport, errTransport, nil}),
	}, clk)

	assert.True(t, res.Success)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}, clk.slept)
}

func TestExecute_CanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	policy, err := retry.NewPolicy(3, retry.FixedBackoff(time.Hour), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	obs := &recordingObserver{}
	res := execute(ctx, Request[string]{
		Policy: policy,
		Attempt: func(_ context.Context, _ int32) (string, error) {
			calls++
			cancel()
			return "", errTransport
		},
		Observer: obs,
	}, realClock{})

	assert.Equal(t, 1, calls)
	assert.False(t, res.Success)
	assert.Equal(t, int32(1), res.AttemptsUsed)
	assert.ErrorIs(t, res.Err, errs.ErrDispatchCanceled)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.ErrorIs(t, res.Err, errTransport)
	assert.Len(t, obs.failures, 1)
	assert.Empty(t, obs.scheduled)
	assert.Empty(t, obs.escalations)
}

func TestExecute_CanceledBeforeStart(t *testing.T) {
	t.Parallel()

	policy, err := retry.NewPolicy(3, nil, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Execute(ctx, Request[string]{
		Policy: policy,
		Attempt: func(_ context.Context, _ int32) (string, error) {
			t.Fatal("attempt should not be invoked")
			return "", nil
		},
	})

	assert.Equal(t, int32(0), res.AttemptsUsed)
	assert.ErrorIs(t, res.Err, errs.ErrDispatchCanceled)
}

func TestExecute_InFlightAttemptNotCanceled(t *testing.T) {
	t.Parallel()

	policy, err := retry.NewPolicy(1, nil, retry.NoEscalation)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	res := Execute(ctx, Request[string]{
		Policy: policy,
		Attempt: func(attemptCtx context.Context, _ int32) (string, error) {
			cancel()
			if err := attemptCtx.Err(); err != nil {
				return "", err
			}
			return "ok", nil
		},
	})

	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.Value)
}

func TestExecute_AttemptTimeout(t *testing.T) {
	t.Parallel()

	policy, err := retry.NewPolicy(2, nil, 0)
	require.NoError(t, err)

	obs := &recordingObserver{}
	res := Execute(context.Background(), Request[string]{
		Policy: policy,
		Attempt: func(ctx context.Context, _ int32) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
		Observer:       obs,
		AttemptTimeout: 10 * time.Millisecond,
	})

	assert.False(t, res.Success)
	assert.Equal(t, int32(2), res.AttemptsUsed)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Len(t, obs.scheduled, 1)
	assert.Len(t, obs.escalations, 1)
}

func TestExecute_Panic(t *testing.T) {
	t.Parallel()

	policy, err := retry.NewPolicy(3, nil, retry.NoEscalation)
	require.NoError(t, err)

	obs := &recordingObserver{}
	res := execute(context.Background(), Request[string]{
		Policy: policy,
		Attempt: func(_ context.Context, _ int32) (string, error) {
			panic("nil template")
		},
		Observer: obs,
	}, newFakeClock())

	assert.False(t, res.Success)
	assert.Equal(t, int32(1), res.AttemptsUsed)
	assert.ErrorIs(t, res.Err, errs.ErrAttemptPanicked)
	assert.True(t, errs.IsTerminal(res.Err))
	assert.Len(t, obs.escalations, 1)
}

func TestExecute_InvalidRequest(t *testing.T) {
	t.Parallel()

	res := Execute(context.Background(), Request[string]{
		Attempt: scripted([]error{nil}),
	})
	assert.ErrorIs(t, res.Err, errs.ErrInvalidRetryPolicy)

	policy, err := retry.NewPolicy(1, nil, 0)
	require.NoError(t, err)

	res = Execute(context.Background(), Request[string]{Policy: policy})
	assert.ErrorIs(t, res.Err, errs.ErrInvalidParam)
}

func TestObservers(t *testing.T) {
	t.Parallel()

	first, second := &recordingObserver{}, &recordingObserver{}
	obs := Observers{first, second}

	ctx := context.Background()
	state := domain.RetryState{Attempt: 1, MaxAttempts: 2}
	obs.OnAttemptFailure(ctx, Failure{Attempt: 1, Err: errTransport, State: state})
	obs.OnRetryScheduled(ctx, state)
	obs.OnEscalationOpen(ctx, state, errTransport)
	obs.OnEscalationClosed(ctx, domain.Escalation{Id: 1})

	for _, o := range []*recordingObserver{first, second} {
		assert.Len(t, o.failures, 1)
		assert.Len(t, o.scheduled, 1)
		assert.Len(t, o.escalations, 1)
		assert.Len(t, o.closed, 1)
	}
}

func scripted(outcomes []error) AttemptFunc[string] {
	return func(_ context.Context, attempt int32) (string, error) {
		if err := outcomes[attempt-1]; err != nil {
			return "", err
		}
		return "ok", nil
	}
}

type recordingObserver struct {
	mu          sync.Mutex
	failures    []Failure
	scheduled   []domain.RetryState
	escalations []domain.RetryState
	closed      []domain.Escalation
}

func (o *recordingObserver) OnAttemptFailure(_ context.Context, f Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, f)
}

func (o *recordingObserver) OnRetryScheduled(_ context.Context, state domain.RetryState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduled = append(o.scheduled, state)
}

func (o *recordingObserver) OnEscalationOpen(_ context.Context, state domain.RetryState, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.escalations = append(o.escalations, state)
}

func (o *recordingObserver) OnEscalationClosed(_ context.Context, esc domain.Escalation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = append(o.closed, esc)
}

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}
