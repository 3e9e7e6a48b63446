package ioc

import (
	"time"

	"github.com/JrMarcco/jreminder/internal/pkg/inflight"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var InflightFxOpt = fx.Provide(
	InitInflightGuard,
)

const defaultInflightExpires = 10 * time.Minute

// InitInflightGuard 多实例部署使用 redis，单实例可以使用本地缓存
func InitInflightGuard(rc redis.Cmdable) inflight.Guard {
	type config struct {
		Type    string        `mapstructure:"type"`
		Expires time.Duration `mapstructure:"expires"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("inflight", cfg); err != nil {
		panic(err)
	}
	if cfg.Expires <= 0 {
		cfg.Expires = defaultInflightExpires
	}

	switch cfg.Type {
	case "local":
		return inflight.NewLocalGuard(cfg.Expires)
	default:
		return inflight.NewRedisGuard(rc, cfg.Expires)
	}
}
