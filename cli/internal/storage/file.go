package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// FileStore 基于 YAML 文件的存储，由 viper 读写
type FileStore struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// NewFileStore 打开或创建状态文件
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("状态文件路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("创建状态目录失败: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取状态文件失败: %w", err)
		}
	}
	return &FileStore{path: path, v: v}, nil
}

// Get 读取键值
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key), nil
}

// Set 写入键值并落盘
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.write()
}

// Delete 删除键
// viper 不支持移除键，写入空字符串
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(key) {
		return nil
	}
	s.v.Set(key, "")
	return s.write()
}

// Close 文件存储无需关闭
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) write() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("写入状态文件失败: %w", err)
	}
	return nil
}
