package ioc

import (
	"context"

	"github.com/JrMarcco/jreminder/internal/pkg/retry"
	"github.com/JrMarcco/jreminder/internal/service/conf"
	"github.com/spf13/viper"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var PolicyFxOpt = fx.Provide(
	InitPolicyProvider,
)

var PolicyFxInvoke = fx.Invoke(
	PolicyLifecycle,
)

// InitPolicyProvider 配置了 etcd key 时策略可热更新，否则只使用配置文件中的策略
func InitPolicyProvider(etcdClient *clientv3.Client, logger *zap.Logger) conf.PolicyProvider {
	type config struct {
		retry.PolicyConfig `mapstructure:",squash"`
		EtcdKey            string `mapstructure:"etcd_key"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("retry", cfg); err != nil {
		panic(err)
	}

	policy, err := retry.NewPolicyFromConfig(cfg.PolicyConfig)
	if err != nil {
		panic(err)
	}

	if etcdClient == nil || cfg.EtcdKey == "" {
		return conf.NewStaticPolicyProvider(policy)
	}
	return conf.NewEtcdPolicyProvider(etcdClient, cfg.EtcdKey, policy, logger)
}

func PolicyLifecycle(lc fx.Lifecycle, provider conf.PolicyProvider, logger *zap.Logger) {
	ep, ok := provider.(*conf.EtcdPolicyProvider)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			// 先同步加载一次，保证第一个批次就使用 etcd 中的策略
			var fromRev int64
			rev, err := ep.Load(startCtx)
			if err != nil {
				logger.Warn("[jreminder] failed to load retry policy from etcd, use local one", zap.Error(err))
			} else {
				fromRev = rev + 1
			}

			go func() {
				if watchErr := ep.Watch(ctx, fromRev); watchErr != nil && ctx.Err() == nil {
					logger.Error("[jreminder] retry policy watch stopped", zap.Error(watchErr))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
