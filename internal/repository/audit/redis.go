package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStreamSink 把生命周期事件追加到 redis stream，供运营看板实时消费。
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func (s *RedisStreamSink) Append(ctx context.Context, evt domain.LifecycleEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("[jreminder] marshal lifecycle event error: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"stage":          evt.Stage.String(),
			"correlation_id": evt.CorrelationId,
			"patient_id":     evt.PatientId,
			"payload":        payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("[jreminder] append lifecycle event to redis stream error: %w", err)
	}
	return nil
}

func NewRedisStreamSink(client redis.Cmdable, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}
