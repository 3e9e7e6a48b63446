package inflight

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 只释放自己持有的 key，防止过期后误删其它实例重新获取的占用
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ Guard = (*RedisGuard)(nil)

// RedisGuard 基于 SetNX 的跨实例占用，expires 兜底进程崩溃后未释放的 key
type RedisGuard struct {
	client  redis.Cmdable
	token   string
	expires time.Duration
}

func (r *RedisGuard) TryAcquire(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.redisKey(key), r.token, r.expires).Result()
}

func (r *RedisGuard) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, r.client, []string{r.redisKey(key)}, r.token).Err()
}

func (r *RedisGuard) redisKey(key string) string {
	return "inflight:" + key
}

func NewRedisGuard(client redis.Cmdable, expires time.Duration) *RedisGuard {
	return &RedisGuard{
		client:  client,
		token:   uuid.NewString(),
		expires: expires,
	}
}

func uitoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}
