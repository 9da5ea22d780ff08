// Package config 管理 CLI 客户端配置
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/storage"
)

// DefaultServerURL 对话服务默认地址
const DefaultServerURL = "http://localhost:8000/api"

// Config CLI 配置结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	UI      UIConfig      `mapstructure:"ui"`
}

// ServerConfig 对话服务配置
type ServerConfig struct {
	URL     string        `mapstructure:"url"`     // HTTP API 地址
	Timeout time.Duration `mapstructure:"timeout"` // 单次请求超时
}

// StorageConfig 本地状态存储配置
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // file / sqlite / redis
	Path    string `mapstructure:"path"`    // 为空时放在配置目录下
}

// RedisConfig redis 后端配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// BridgeConfig 浏览器桥接配置
type BridgeConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig 终端显示配置
type UIConfig struct {
	Color bool `mapstructure:"color"`
}

var (
	cfg        *Config
	configPath string
	configDir  string
)

// Init 初始化配置
// 配置文件: ~/.klu-agent/config.yaml，不存在时写入默认值
// 环境变量 KLU_SERVER_URL 等可以覆盖配置文件
func Init() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("获取用户目录失败: %w", err)
	}
	return InitAt(filepath.Join(home, ".klu-agent"))
}

// InitAt 在指定目录初始化配置
func InitAt(dir string) error {
	configDir = dir
	configPath = filepath.Join(configDir, "config.yaml")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("KLU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := viper.SafeWriteConfigAs(configPath); err != nil {
			return fmt.Errorf("写入默认配置失败: %w", err)
		}
	}
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.url", DefaultServerURL)
	viper.SetDefault("server.timeout", "60s")

	viper.SetDefault("storage.backend", storage.BackendFile)
	viper.SetDefault("storage.path", "")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", storage.DefaultRedisPrefix)

	viper.SetDefault("bridge.addr", "127.0.0.1:8765")
	viper.SetDefault("ui.color", true)
}

// Get 获取配置
func Get() *Config {
	return cfg
}

// Dir 配置目录
func Dir() string {
	return configDir
}

// Path 配置文件路径
func Path() string {
	return configPath
}

// LogPath 日志文件路径
func LogPath() string {
	return filepath.Join(configDir, "klu-agent.log")
}

// GetServerURL 获取服务地址
func GetServerURL() string {
	if cfg == nil || cfg.Server.URL == "" {
		return DefaultServerURL
	}
	return cfg.Server.URL
}

// SetServerURL 临时覆盖服务地址（不写入文件）
func SetServerURL(url string) {
	url = strings.TrimRight(url, "/")
	viper.Set("server.url", url)
	if cfg != nil {
		cfg.Server.URL = url
	}
}

// SaveServerURL 保存服务地址到配置文件
func SaveServerURL(url string) error {
	SetServerURL(url)
	return viper.WriteConfig()
}

// StorageOptions 转换为存储配置
func StorageOptions() storage.Options {
	c := cfg
	if c == nil {
		c = &Config{}
	}

	backend := c.Storage.Backend
	if backend == "" {
		backend = storage.BackendFile
	}

	path := c.Storage.Path
	if path == "" {
		switch backend {
		case storage.BackendSQLite:
			path = filepath.Join(configDir, "state.db")
		default:
			path = filepath.Join(configDir, "state.yaml")
		}
	}

	return storage.Options{
		Backend:       backend,
		Path:          path,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		RedisPrefix:   c.Redis.Prefix,
	}
}
