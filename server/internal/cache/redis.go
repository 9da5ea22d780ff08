// Package cache 提供 Redis 缓存操作的封装
// 目前用于缓存会话列表，避免每次请求都统计消息
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/config"
)

// 缓存 Key
const (
	// KeySessionList 会话列表
	KeySessionList = "klu:sessions"
)

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username, // 阿里云 Redis 需要用户名
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient 使用已有的客户端创建 RedisCache
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ==================== JSON 读写 ====================

// GetJSON 读取 JSON 值并解析到 dst
// 参数:
//   - ctx: 上下文
//   - key: 缓存 Key
//   - dst: 解析目标，必须是指针
//
// 返回:
//   - bool: 是否命中
//   - error: Redis 或解析错误
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON 将值序列化为 JSON 写入缓存
// 参数:
//   - ctx: 上下文
//   - key: 缓存 Key
//   - value: 要缓存的值
//   - ttl: 过期时间，0 表示不过期
//
// 返回:
//   - error: Redis 或序列化错误
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 删除缓存
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ==================== 通用方法 ====================

// Ping 检查 Redis 连接
// 参数:
//   - ctx: 上下文
//
// 返回:
//   - error: 如果连接失败返回错误
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
