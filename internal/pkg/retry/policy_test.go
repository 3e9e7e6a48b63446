package retry

import (
	"testing"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name          string
		maxAttempts   int32
		threshold     int32
		wantThreshold int32
		wantErr       error
	}{
		{
			name:        "zero max attempts",
			maxAttempts: 0,
			wantErr:     errs.ErrInvalidRetryPolicy,
		}, {
			name:        "negative max attempts",
			maxAttempts: -1,
			wantErr:     errs.ErrInvalidRetryPolicy,
		}, {
			name:        "threshold not less than max attempts",
			maxAttempts: 3,
			threshold:   3,
			wantErr:     errs.ErrInvalidRetryPolicy,
		}, {
			name:          "escalate on exhaustion",
			maxAttempts:   3,
			threshold:     0,
			wantThreshold: 0,
		}, {
			name:          "negative threshold normalized",
			maxAttempts:   3,
			threshold:     -5,
			wantThreshold: NoEscalation,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPolicy(tc.maxAttempts, nil, tc.threshold)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.maxAttempts, p.MaxAttempts())
			assert.Equal(t, tc.wantThreshold, p.EscalationThreshold())
		})
	}
}

func TestPolicy_ForAttempt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	backoff := func(attempt int32) time.Duration {
		return time.Duration(attempt) * time.Second
	}

	tcs := []struct {
		name          string
		maxAttempts   int32
		threshold     int32
		attempt       int32
		wantStage     domain.RetryStage
		wantTerminal  bool
		wantEscalate  bool
		wantNext      int32
		wantNextRetry *time.Time
		wantErr       error
	}{
		{
			name:        "attempt below one",
			maxAttempts: 3,
			attempt:     0,
			wantErr:     errs.ErrInvalidAttempt,
		}, {
			name:        "attempt above max",
			maxAttempts: 3,
			attempt:     4,
			wantErr:     errs.ErrInvalidAttempt,
		}, {
			name:          "first failure schedules retry",
			maxAttempts:   3,
			attempt:       1,
			wantStage:     domain.RetryStageScheduled,
			wantNext:      2,
			wantNextRetry: ptr(now.Add(time.Second)),
		}, {
			name:          "second failure keeps retrying",
			maxAttempts:   3,
			attempt:       2,
			wantStage:     domain.RetryStageRetrying,
			wantNext:      3,
			wantNextRetry: ptr(now.Add(2 * time.Second)),
		}, {
			name:         "last failure escalates",
			maxAttempts:  3,
			attempt:      3,
			wantStage:    domain.RetryStageEscalated,
			wantTerminal: true,
			wantEscalate: true,
		}, {
			name:         "last failure exhausts without escalation",
			maxAttempts:  3,
			threshold:    NoEscalation,
			attempt:      3,
			wantStage:    domain.RetryStageExhausted,
			wantTerminal: true,
		}, {
			name:         "threshold escalates before exhaustion",
			maxAttempts:  5,
			threshold:    2,
			attempt:      3,
			wantStage:    domain.RetryStageEscalated,
			wantTerminal: true,
			wantEscalate: true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPolicy(tc.maxAttempts, backoff, tc.threshold)
			require.NoError(t, err)

			state, err := p.ForAttempt(tc.attempt, now)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tc.attempt, state.Attempt)
			assert.Equal(t, tc.maxAttempts-tc.attempt, state.RemainingAttempts)
			assert.Equal(t, tc.wantStage, state.Stage)
			assert.Equal(t, tc.wantTerminal, state.Terminal)
			assert.Equal(t, tc.wantEscalate, state.EscalationReady)
			assert.Equal(t, tc.wantNext, state.NextAttempt)
			assert.Equal(t, tc.wantNextRetry, state.NextRetryAt)
			if tc.wantEscalate {
				assert.NotEmpty(t, state.EscalationReason)
			} else {
				assert.Empty(t, state.EscalationReason)
			}
		})
	}
}

func TestPolicy_ForAttempt_Monotonic(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for _, maxAttempts := range []int32{1, 2, 3, 5, 10} {
		for _, threshold := range []int32{NoEscalation, 0} {
			p, err := NewPolicy(maxAttempts, FixedBackoff(time.Millisecond), threshold)
			require.NoError(t, err)

			prevRemaining := maxAttempts
			for attempt := int32(1); attempt <= maxAttempts; attempt++ {
				state, err := p.ForAttempt(attempt, now)
				require.NoError(t, err)

				// 剩余次数严格递减
				assert.Equal(t, maxAttempts-attempt, state.RemainingAttempts)
				assert.Less(t, state.RemainingAttempts, prevRemaining)
				prevRemaining = state.RemainingAttempts

				// 终态不会带下一次重试时间
				if state.Terminal {
					assert.Nil(t, state.NextRetryAt)
					assert.True(t, state.Stage.IsTerminal())
				} else {
					assert.NotNil(t, state.NextRetryAt)
				}
				assert.Equal(t, state.RemainingAttempts <= 0, state.Terminal)
			}
		}
	}
}

func TestPolicy_ForImmediateEscalation(t *testing.T) {
	t.Parallel()

	p, err := NewPolicy(3, FixedBackoff(time.Second), 0)
	require.NoError(t, err)

	state, err := p.ForImmediateEscalation(1, "consent withdrawn", time.Now())
	require.NoError(t, err)
	assert.True(t, state.Terminal)
	assert.True(t, state.EscalationReady)
	assert.Equal(t, domain.RetryStageEscalated, state.Stage)
	assert.Equal(t, int32(2), state.RemainingAttempts)
	assert.Nil(t, state.NextRetryAt)
	assert.Equal(t, int32(0), state.NextAttempt)
	assert.Equal(t, "consent withdrawn", state.EscalationReason)

	state, err = p.ForImmediateEscalation(2, "", time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, state.EscalationReason)

	_, err = p.ForImmediateEscalation(0, "x", time.Now())
	assert.ErrorIs(t, err, errs.ErrInvalidAttempt)

	_, err = Policy{}.ForImmediateEscalation(1, "x", time.Now())
	assert.ErrorIs(t, err, errs.ErrInvalidRetryPolicy)
}

func TestNewPolicyFromConfig(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tcs := []struct {
		name         string
		cfg          PolicyConfig
		wantBackoffs []time.Duration
		wantErr      error
	}{
		{
			name: "fixed interval",
			cfg: PolicyConfig{
				MaxAttempts: 3,
				Backoff: Config{
					Type:          TypeFixedInterval,
					FixedInterval: &FixedIntervalConfig{Interval: 100 * time.Millisecond, MaxTimes: 3},
				},
			},
			wantBackoffs: []time.Duration{100 * time.Millisecond, 100 * time.Millisecond},
		}, {
			name: "exponential backoff",
			cfg: PolicyConfig{
				MaxAttempts: 4,
				Backoff: Config{
					Type: TypeExponentialBackoff,
					ExponentialBackoff: &ExponentialBackoffConfig{
						InitInterval: 2 * time.Second,
						MaxInterval:  time.Minute,
						MaxTimes:     5,
					},
				},
			},
			wantBackoffs: []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
		}, {
			name: "exponential backoff capped by max interval",
			cfg: PolicyConfig{
				MaxAttempts: 5,
				Backoff: Config{
					Type: TypeExponentialBackoff,
					ExponentialBackoff: &ExponentialBackoffConfig{
						InitInterval: time.Second,
						MaxInterval:  3 * time.Second,
					},
				},
			},
			wantBackoffs: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second},
		}, {
			name:    "unknown type",
			cfg:     PolicyConfig{MaxAttempts: 3, Backoff: Config{Type: "linear"}},
			wantErr: errs.ErrInvalidRetryPolicy,
		}, {
			name:    "exponential config missing",
			cfg:     PolicyConfig{MaxAttempts: 3, Backoff: Config{Type: TypeExponentialBackoff}},
			wantErr: errs.ErrInvalidRetryPolicy,
		}, {
			name: "max times below retries",
			cfg: PolicyConfig{
				MaxAttempts: 5,
				Backoff: Config{
					Type:          TypeFixedInterval,
					FixedInterval: &FixedIntervalConfig{Interval: time.Second, MaxTimes: 2},
				},
			},
			wantErr: errs.ErrInvalidRetryPolicy,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewPolicyFromConfig(tc.cfg)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.MaxAttempts, p.MaxAttempts())

			// 重复计算两轮，结果不受之前调用影响
			for range 2 {
				for i, want := range tc.wantBackoffs {
					attempt := int32(i + 1)
					assert.Equal(t, want, p.Backoff(attempt), "attempt %d", attempt)

					state, err := p.ForAttempt(attempt, now)
					require.NoError(t, err)
					require.NotNil(t, state.NextRetryAt)
					assert.Equal(t, want, state.NextRetryAt.Sub(now), "attempt %d", attempt)
				}
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
