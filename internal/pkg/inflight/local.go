package inflight

import (
	"context"
	"time"

	gcache "github.com/patrickmn/go-cache"
)

var _ Guard = (*LocalGuard)(nil)

// LocalGuard 单实例部署时使用
type LocalGuard struct {
	c *gcache.Cache
}

func (l *LocalGuard) TryAcquire(_ context.Context, key string) (bool, error) {
	// Add 在 key 已存在且未过期时返回错误
	return l.c.Add(key, struct{}{}, gcache.DefaultExpiration) == nil, nil
}

func (l *LocalGuard) Release(_ context.Context, key string) error {
	l.c.Delete(key)
	return nil
}

func NewLocalGuard(expires time.Duration) *LocalGuard {
	return &LocalGuard{
		c: gcache.New(expires, 2*expires),
	}
}
