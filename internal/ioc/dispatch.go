package ioc

import (
	"github.com/JrMarcco/jreminder/internal/service/dispatch"
	"github.com/JrMarcco/jreminder/internal/service/escalation"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var DispatchFxOpt = fx.Provide(
	// escalation service
	fx.Annotate(
		escalation.NewDefaultService,
		fx.As(new(escalation.Service)),
	),
	InitHealthMonitor,
	InitDispatchConfig,
	// dispatcher
	fx.Annotate(
		dispatch.NewDispatcher,
		fx.As(new(dispatch.Service)),
	),
)

func InitHealthMonitor() *dispatch.HealthMonitor {
	cfg := dispatch.HealthConfig{}
	if err := viper.UnmarshalKey("health", &cfg); err != nil {
		panic(err)
	}
	m, err := dispatch.NewHealthMonitor(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

func InitDispatchConfig() dispatch.Config {
	cfg := dispatch.Config{}
	if err := viper.UnmarshalKey("dispatch", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
