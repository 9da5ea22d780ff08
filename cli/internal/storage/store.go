// Package storage 提供客户端本地键值持久化
// 目前只保存当前会话ID，支持 file / sqlite / redis 三种后端
package storage

import (
	"context"
	"fmt"
	"strings"
)

// 后端类型
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Store 键值存储
// Get 在键不存在时返回空字符串
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options 存储配置
type Options struct {
	Backend string // file / sqlite / redis
	Path    string // file、sqlite 后端的文件路径

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open 根据配置打开存储
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileStore(opts.Path)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.Path)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("未知的存储后端: %s", opts.Backend)
	}
}
