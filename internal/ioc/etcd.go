package ioc

import (
	"context"
	"time"

	"github.com/spf13/viper"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/fx"
)

var EtcdFxOpt = fx.Provide(
	InitEtcdClient,
)

// InitEtcdClient 未配置 endpoints 时返回 nil，此时不启用策略热更新
func InitEtcdClient(lc fx.Lifecycle) *clientv3.Client {
	type config struct {
		Username    string        `mapstructure:"username"`
		Password    string        `mapstructure:"password"`
		Endpoints   []string      `mapstructure:"endpoints"`
		DialTimeout time.Duration `mapstructure:"dial_timeout"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("etcd", cfg); err != nil {
		panic(err)
	}
	if len(cfg.Endpoints) == 0 {
		return nil
	}

	client, err := clientv3.New(clientv3.Config{
		Username:    cfg.Username,
		Password:    cfg.Password,
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		panic(err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}
