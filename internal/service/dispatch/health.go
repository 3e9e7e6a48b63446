package dispatch

import (
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/pkg/bitring"
	"github.com/JrMarcco/jreminder/internal/pkg/ringbuffer"
)

// HealthConfig 渠道健康检测配置
type HealthConfig struct {
	WindowSize     int     `mapstructure:"window_size"`
	MinConsecutive int     `mapstructure:"min_consecutive"`
	RateThreshold  float64 `mapstructure:"rate_threshold"`
	LatencySamples int     `mapstructure:"latency_samples"`
}

// ChannelHealth 渠道健康快照
type ChannelHealth struct {
	Channel     domain.Channel
	Degraded    bool
	FailureRate float64
	AvgLatency  time.Duration
	MaxLatency  time.Duration
}

type channelWindow struct {
	failures  *bitring.FailureRing
	latencies *ringbuffer.LatencyRing
}

// HealthMonitor 按渠道统计最近的发送失败与耗时，用于发现系统性故障。
//
// 只用于观测，不改变发送结果。
type HealthMonitor struct {
	windows map[domain.Channel]*channelWindow
}

// Observe 记录一次尝试，返回记录后该渠道是否处于降级状态
func (m *HealthMonitor) Observe(channel domain.Channel, latency time.Duration, failed bool) bool {
	w, ok := m.windows[channel]
	if !ok {
		return false
	}
	w.failures.Record(failed)
	w.latencies.Observe(latency)

	degraded := w.failures.Degraded()
	if degraded {
		channelDegraded.WithLabelValues(channel.String()).Set(1)
	} else {
		channelDegraded.WithLabelValues(channel.String()).Set(0)
	}
	return degraded
}

func (m *HealthMonitor) Health(channel domain.Channel) ChannelHealth {
	h := ChannelHealth{Channel: channel}
	w, ok := m.windows[channel]
	if !ok {
		return h
	}
	h.Degraded = w.failures.Degraded()
	h.FailureRate = w.failures.FailureRate()
	h.AvgLatency = w.latencies.Avg()
	h.MaxLatency = w.latencies.Max()
	return h
}

func NewHealthMonitor(cfg HealthConfig) (*HealthMonitor, error) {
	if cfg.LatencySamples <= 0 {
		cfg.LatencySamples = 64
	}
	if cfg.RateThreshold <= 0 {
		cfg.RateThreshold = 0.5
	}

	channels := []domain.Channel{domain.ChannelSMS, domain.ChannelEmail, domain.ChannelWhatsApp}
	windows := make(map[domain.Channel]*channelWindow, len(channels))
	for _, c := range channels {
		latencies, err := ringbuffer.NewLatencyRing(cfg.LatencySamples)
		if err != nil {
			return nil, err
		}
		windows[c] = &channelWindow{
			failures:  bitring.NewFailureRing(cfg.WindowSize, cfg.MinConsecutive, cfg.RateThreshold),
			latencies: latencies,
		}
	}
	return &HealthMonitor{windows: windows}, nil
}
