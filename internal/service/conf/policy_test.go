package conf

import (
	"testing"
	"time"

	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name            string
		data            string
		wantMaxAttempts int32
		wantThreshold   int32
		wantBackoff     time.Duration
		wantErr         error
	}{
		{
			name: "fixed interval",
			data: `{"max_attempts":4,"escalation_threshold":1,"backoff":{"type":"fixed_interval","fixed_interval":{"interval":2000000000,"max_times":4}}}`,

			wantMaxAttempts: 4,
			wantThreshold:   1,
			wantBackoff:     2 * time.Second,
		}, {
			name:    "unknown backoff type",
			data:    `{"max_attempts":3,"backoff":{"type":"linear"}}`,
			wantErr: errs.ErrInvalidRetryPolicy,
		}, {
			name:    "threshold not less than max attempts",
			data:    `{"max_attempts":2,"escalation_threshold":2,"backoff":{"type":"fixed_interval","fixed_interval":{"interval":1000,"max_times":2}}}`,
			wantErr: errs.ErrInvalidRetryPolicy,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			p, err := parsePolicy([]byte(tc.data))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMaxAttempts, p.MaxAttempts())
			assert.Equal(t, tc.wantThreshold, p.EscalationThreshold())
			assert.Equal(t, tc.wantBackoff, p.Backoff(1))
		})
	}
}

func TestEtcdPolicyProvider_Update(t *testing.T) {
	t.Parallel()

	fallback, err := retry.NewPolicy(3, retry.FixedBackoff(time.Second), 0)
	require.NoError(t, err)

	p := NewEtcdPolicyProvider(nil, "/jreminder/retry_policy", fallback, zap.NewNop())
	assert.Equal(t, int32(3), p.Policy().MaxAttempts())

	p.update([]byte(`{"max_attempts":5,"escalation_threshold":-1,"backoff":{"type":"fixed_interval","fixed_interval":{"interval":1000,"max_times":5}}}`))
	assert.Equal(t, int32(5), p.Policy().MaxAttempts())
	assert.Equal(t, retry.NoEscalation, p.Policy().EscalationThreshold())

	// 非法配置不覆盖当前策略
	p.update([]byte(`not json`))
	assert.Equal(t, int32(5), p.Policy().MaxAttempts())
}

func TestStaticPolicyProvider(t *testing.T) {
	t.Parallel()

	policy, err := retry.NewPolicy(2, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, policy, NewStaticPolicyProvider(policy).Policy())
}
