package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mall-next/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "mall"

var (
	redisClient *redis.Client
	redisPrefix = defaultPrefix
)

// InitRedis 建立 Redis 连接并做一次连通性检查；未启用时保持空客户端
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		SetClient(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s:%d: %w", host, port, err)
	}
	SetClient(client, cfg.Prefix)
	return nil
}

// SetClient 替换全局客户端，测试里传 nil 可关闭缓存
func SetClient(client *redis.Client, prefix string) {
	redisClient = client
	redisPrefix = strings.TrimSpace(prefix)
	if redisPrefix == "" {
		redisPrefix = defaultPrefix
	}
}

// Close 关闭全局客户端
func Close() error {
	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	return err
}

func Prefix() string { return redisPrefix }

func Enabled() bool { return redisClient != nil }

// Client 未启用时返回 nil，调用方据此走降级路径
func Client() *redis.Client { return redisClient }

// getJSON 读取 JSON 值，键不存在时返回 false
func getJSON(ctx context.Context, key string, dest any) (bool, error) {
	if redisClient == nil {
		return false, nil
	}
	raw, err := redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if redisClient == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redisClient.Set(ctx, key, payload, ttl).Err()
}

// key 拼接带前缀的键
func key(parts ...string) string {
	return redisPrefix + ":" + strings.Join(parts, ":")
}
