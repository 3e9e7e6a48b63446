package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/JrMarcco/jreminder/internal/domain"
)

// KafkaSink 把生命周期事件发布到 kafka，以关联 id 作为 key 保证同一次发送的事件有序。
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func (s *KafkaSink) Append(ctx context.Context, evt domain.LifecycleEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("[jreminder] marshal lifecycle event error: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(evt.CorrelationId),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("stage"), Value: []byte(evt.Stage.String())},
		},
	}

	done := make(chan error, 1)
	go func() {
		_, _, sendErr := s.producer.SendMessage(msg)
		done <- sendErr
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("[jreminder] publish lifecycle event to kafka canceled: %w", ctx.Err())
	case sendErr := <-done:
		if sendErr != nil {
			return fmt.Errorf("[jreminder] publish lifecycle event to kafka error: %w", sendErr)
		}
		return nil
	}
}

func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		topic:    topic,
	}
}

// NewSyncProducer 幂等生产者，要求所有副本确认
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	return sarama.NewSyncProducer(brokers, cfg)
}
