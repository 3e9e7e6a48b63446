package ringbuffer

import (
	"testing"
	"time"

	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLatencyRing_Observe(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		size    int
		samples []time.Duration
		wantLen int
		wantAvg time.Duration
		wantMax time.Duration
		wantErr error
	}{
		{
			name:    "invalid size",
			size:    0,
			wantErr: errs.ErrInvalidParam,
		}, {
			name:    "empty",
			size:    4,
			wantLen: 0,
		}, {
			name:    "partially filled",
			size:    4,
			samples: []time.Duration{time.Second, 2 * time.Second, time.Minute},
			wantLen: 3,
			wantAvg: 21 * time.Second,
			wantMax: time.Minute,
		}, {
			name: "oldest samples evicted",
			size: 4,
			samples: []time.Duration{
				time.Hour,
				time.Second,
				time.Second,
				time.Minute,
				time.Minute,
			},
			wantLen: 4,
			wantAvg: 30500 * time.Millisecond,
			wantMax: time.Minute,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			lr, err := NewLatencyRing(tc.size)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			for _, d := range tc.samples {
				lr.Observe(d)
			}

			assert.Equal(t, tc.size, lr.Cap())
			assert.Equal(t, tc.wantLen, lr.Len())
			assert.Equal(t, tc.wantAvg, lr.Avg())
			assert.Equal(t, tc.wantMax, lr.Max())
		})
	}
}

func TestLatencyRing_Concurrent(t *testing.T) {
	t.Parallel()

	lr, err := NewLatencyRing(64)
	require.NoError(t, err)

	var eg errgroup.Group
	for i := range 128 {
		eg.Go(func() error {
			lr.Observe(time.Duration(i) * time.Millisecond)
			_ = lr.Avg()
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, 64, lr.Len())
}
