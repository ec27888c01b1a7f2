package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeckillStockInsufficient Lua 脚本返回的库存不足哨兵值（与 0 即“刚好售罄”区分）
const SeckillStockInsufficient int64 = -1

// ErrSeckillStockInsufficient 缓存库存不足或未预热
var ErrSeckillStockInsufficient = errors.New("seckill stock insufficient")

// 原子条件扣减：库存不存在或不足时返回 -1
var seckillDecrScript = redis.NewScript(`
local stock = redis.call('GET', KEYS[1])
if not stock then
	return -1
end
local amount = tonumber(ARGV[1])
if tonumber(stock) < amount then
	return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`)

// 仅在键存在时回补，避免窗口结束后重新生成键
var seckillIncrScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCRBY', KEYS[1], ARGV[1])
end
return -1
`)

// SeckillStockCache 秒杀 SKU 库存的 Redis 镜像
type SeckillStockCache struct {
	client *redis.Client
	prefix string
}

// NewSeckillStockCache 创建秒杀库存缓存
func NewSeckillStockCache(client *redis.Client, prefix string) *SeckillStockCache {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SeckillStockCache{client: client, prefix: prefix}
}

func (c *SeckillStockCache) key(skuID uint) string {
	return fmt.Sprintf("%s:seckill_sku_stock:%d", c.prefix, skuID)
}

// Load 写入库存镜像，ttl 为秒杀窗口剩余时间；ttl <= 0 时删除镜像
func (c *SeckillStockCache) Load(ctx context.Context, skuID uint, stock int, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Forget(ctx, skuID)
	}
	return c.client.Set(ctx, c.key(skuID), stock, ttl).Err()
}

// Forget 删除库存镜像
func (c *SeckillStockCache) Forget(ctx context.Context, skuID uint) error {
	return c.client.Del(ctx, c.key(skuID)).Err()
}

// Get 读取库存镜像；found=false 表示未预热或已过期
func (c *SeckillStockCache) Get(ctx context.Context, skuID uint) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.key(skuID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	stock, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

// Decr 原子扣减，返回扣减后的剩余库存；不足时返回 ErrSeckillStockInsufficient
func (c *SeckillStockCache) Decr(ctx context.Context, skuID uint, amount int) (int64, error) {
	remaining, err := seckillDecrScript.Run(ctx, c.client, []string{c.key(skuID)}, amount).Int64()
	if err != nil {
		return 0, err
	}
	if remaining == SeckillStockInsufficient {
		return 0, ErrSeckillStockInsufficient
	}
	return remaining, nil
}

// Incr 回补库存镜像，仅对仍存在的键生效；返回 false 表示键已不存在
func (c *SeckillStockCache) Incr(ctx context.Context, skuID uint, amount int) (bool, error) {
	result, err := seckillIncrScript.Run(ctx, c.client, []string{c.key(skuID)}, amount).Int64()
	if err != nil {
		return false, err
	}
	return result != SeckillStockInsufficient, nil
}
