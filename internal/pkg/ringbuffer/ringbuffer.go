package ringbuffer

import (
	"fmt"
	"sync"
	"time"

	"github.com/JrMarcco/jreminder/internal/errs"
)

// LatencyRing 固定大小、并发安全的发送耗时环形窗口，只保留最近 size 个样本。
type LatencyRing struct {
	mu sync.RWMutex

	samples []time.Duration

	count    int
	writePos int
	sum      time.Duration
}

func (lr *LatencyRing) Observe(d time.Duration) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.count == len(lr.samples) {
		lr.sum -= lr.samples[lr.writePos]
	} else {
		lr.count++
	}

	lr.samples[lr.writePos] = d
	lr.sum += d
	lr.writePos = (lr.writePos + 1) % len(lr.samples)
}

// Avg 窗口内平均耗时，窗口为空时为 0
func (lr *LatencyRing) Avg() time.Duration {
	lr.mu.RLock()
	defer lr.mu.RUnlock()

	if lr.count == 0 {
		return 0
	}
	return lr.sum / time.Duration(lr.count)
}

// Max 窗口内最大耗时
func (lr *LatencyRing) Max() time.Duration {
	lr.mu.RLock()
	defer lr.mu.RUnlock()

	var res time.Duration
	for i := 0; i < lr.count; i++ {
		res = max(res, lr.samples[i])
	}
	return res
}

func (lr *LatencyRing) Len() int {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	return lr.count
}

func (lr *LatencyRing) Cap() int {
	return len(lr.samples)
}

func NewLatencyRing(size int) (*LatencyRing, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: latency ring size should be greater than 0", errs.ErrInvalidParam)
	}
	return &LatencyRing{
		samples: make([]time.Duration, size),
	}, nil
}
