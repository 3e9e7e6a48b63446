package ioc

import (
	"time"

	"github.com/JrMarcco/jreminder/internal/repository"
	"github.com/JrMarcco/jreminder/internal/repository/cache"
	"github.com/JrMarcco/jreminder/internal/repository/cache/local"
	rediscache "github.com/JrMarcco/jreminder/internal/repository/cache/redis"
	gcache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var RepoFxOpt = fx.Options(
	// cache
	fx.Provide(
		InitLocalCache,
		fx.Annotate(
			local.NewPatientLocalCache,
			fx.As(new(cache.PatientCache)),
			fx.ResultTags(`name:"patient_local_cache"`),
		),
		fx.Annotate(
			InitPatientRedisCache,
			fx.As(new(cache.PatientCache)),
			fx.ResultTags(`name:"patient_redis_cache"`),
		),
	),

	// repository
	fx.Provide(
		// patient repository
		fx.Annotate(
			repository.NewDefaultPatientRepo,
			fx.As(new(repository.PatientRepo)),
			fx.ParamTags(``, `name:"patient_local_cache"`, `name:"patient_redis_cache"`),
		),
		// notification repository
		fx.Annotate(
			repository.NewDefaultNotificationRepo,
			fx.As(new(repository.NotificationRepo)),
		),
		// escalation repository
		fx.Annotate(
			repository.NewDefaultEscalationRepo,
			fx.As(new(repository.EscalationRepo)),
		),
		// lifecycle event repository
		fx.Annotate(
			repository.NewDefaultLifecycleEventRepo,
			fx.As(new(repository.LifecycleEventRepo)),
		),
	),
)

func InitLocalCache() *gcache.Cache {
	return gcache.New(cache.DefaultExpires, time.Minute)
}

func InitPatientRedisCache(rc redis.Cmdable) *rediscache.PatientRedisCache {
	return rediscache.NewPatientRedisCache(rc, cache.DefaultExpires)
}
