package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lock 单实例互斥锁（SETNX + TTL），用于定时任务防重入
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// TryLock 尝试获取锁；Redis 未启用时视为单机部署直接返回空锁
func TryLock(ctx context.Context, name string, ttl time.Duration) (*Lock, bool, error) {
	if !Enabled() {
		return &Lock{}, true, nil
	}
	lock := &Lock{client: redisClient, key: key(name), token: uuid.NewString()}
	ok, err := redisClient.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return lock, true, nil
}

// Release 释放锁，只删除自己持有的令牌
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return releaseLockScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
