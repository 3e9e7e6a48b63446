package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSink_Append(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer func() {
		_ = producer.Close()
	}()

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "jreminder_lifecycle" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "c-1" {
			return errors.New("unexpected key " + string(key))
		}

		val, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var evt domain.LifecycleEvent
		if err = json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.Stage != domain.LifecycleStageSuccess {
			return errors.New("unexpected stage " + evt.Stage.String())
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSink(producer, "jreminder_lifecycle")
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, domain.LifecycleEvent{Stage: domain.LifecycleStageSuccess, CorrelationId: "c-1"}))

	err := sink.Append(ctx, domain.LifecycleEvent{Stage: domain.LifecycleStageFail, CorrelationId: "c-2"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}
