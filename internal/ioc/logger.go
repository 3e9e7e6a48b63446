package ioc

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var LoggerFxOpt = fx.Provide(
	InitLogger,
)

var LoggerFxInvoke = fx.Invoke(
	LoggerLifecycle,
)

func InitLogger() *zap.Logger {
	type config struct {
		Env   string `mapstructure:"env"`
		Level string `mapstructure:"level"`
	}

	cfg := &config{}

	err := viper.UnmarshalKey("profile", cfg)
	if err != nil {
		panic(err)
	}

	var zCfg zap.Config
	switch cfg.Env {
	case "prod":
		zCfg = zap.NewProductionConfig()
	default:
		zCfg = zap.NewDevelopmentConfig()
	}

	// 未配置时使用对应环境的默认级别
	if cfg.Level != "" {
		level, parseErr := zapcore.ParseLevel(cfg.Level)
		if parseErr != nil {
			panic(parseErr)
		}
		zCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zLogger, err := zCfg.Build()
	if err != nil {
		panic(err)
	}
	return zLogger
}

func LoggerLifecycle(lc fx.Lifecycle, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
}
