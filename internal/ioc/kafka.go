package ioc

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/JrMarcco/jreminder/internal/repository/audit"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var KafkaFxOpt = fx.Provide(
	InitKafkaProducer,
)

// InitKafkaProducer 未配置 brokers 时返回 nil，此时不向 kafka 发布审计事件
func InitKafkaProducer(lc fx.Lifecycle) sarama.SyncProducer {
	type config struct {
		Brokers []string `mapstructure:"brokers"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("kafka", cfg); err != nil {
		panic(err)
	}
	if len(cfg.Brokers) == 0 {
		return nil
	}

	producer, err := audit.NewSyncProducer(cfg.Brokers)
	if err != nil {
		panic(err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer
}
