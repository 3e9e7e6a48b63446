package ioc

import (
	"github.com/IBM/sarama"
	"github.com/JrMarcco/jreminder/internal/repository"
	"github.com/JrMarcco/jreminder/internal/repository/audit"
	"github.com/JrMarcco/jreminder/internal/service/lifecycle"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var LifecycleFxOpt = fx.Provide(
	InitLifecycleSink,
	lifecycle.NewRecorder,
)

// InitLifecycleSink 生命周期事件总是落库，redis stream 与 kafka 按配置开启
func InitLifecycleSink(
	repo repository.LifecycleEventRepo, rc redis.Cmdable, producer sarama.SyncProducer, logger *zap.Logger,
) lifecycle.Sink {
	type config struct {
		RedisStream struct {
			Enabled bool   `mapstructure:"enabled"`
			Stream  string `mapstructure:"stream"`
			MaxLen  int64  `mapstructure:"max_len"`
		} `mapstructure:"redis_stream"`
		Kafka struct {
			Topic string `mapstructure:"topic"`
		} `mapstructure:"kafka"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("audit", cfg); err != nil {
		panic(err)
	}

	sinks := lifecycle.MultiSink{repo}
	if cfg.RedisStream.Enabled {
		sinks = append(sinks, audit.NewRedisStreamSink(rc, cfg.RedisStream.Stream, cfg.RedisStream.MaxLen))
	}
	if producer != nil && cfg.Kafka.Topic != "" {
		sinks = append(sinks, audit.NewKafkaSink(producer, cfg.Kafka.Topic))
	}

	logger.Info("[jreminder] lifecycle sinks loaded", zap.Int("count", len(sinks)))
	return sinks
}
