// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`    // 服务器配置
	MySQL     MySQLConfig     `mapstructure:"mysql"`     // MySQL 配置
	Redis     RedisConfig     `mapstructure:"redis"`     // Redis 配置
	AI        AIConfig        `mapstructure:"ai"`        // AI 服务配置
	Log       LogConfig       `mapstructure:"log"`       // 日志配置
	Janitor   JanitorConfig   `mapstructure:"janitor"`   // 过期会话清理
	RateLimit RateLimitConfig `mapstructure:"ratelimit"` // 对话接口限流
	Knowledge KnowledgeConfig `mapstructure:"knowledge"` // 知识库检索
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port    int      `mapstructure:"port"`    // 监听端口，默认 8000
	Mode    string   `mapstructure:"mode"`    // 运行模式: debug / release
	CORS    []string `mapstructure:"cors"`    // CORS 允许的域名
	Version string   `mapstructure:"version"` // 健康检查返回的版本号
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`           // 数据库主机地址
	Port         int    `mapstructure:"port"`           // 数据库端口
	Username     string `mapstructure:"username"`       // 数据库用户名
	Password     string `mapstructure:"password"`       // 数据库密码
	Database     string `mapstructure:"database"`       // 数据库名称
	Charset      string `mapstructure:"charset"`        // 字符集
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string        `mapstructure:"host"`      // Redis 主机地址
	Port     int           `mapstructure:"port"`      // Redis 端口
	Username string        `mapstructure:"username"`  // Redis 用户名（阿里云需要）
	Password string        `mapstructure:"password"`  // Redis 密码
	DB       int           `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int           `mapstructure:"pool_size"` // 连接池大小
	TTL      time.Duration `mapstructure:"ttl"`       // 会话列表缓存时间
}

// AIConfig AI 服务配置
// 使用 OpenAI 兼容接口，默认指向 DashScope 的兼容模式
type AIConfig struct {
	APIKey       string        `mapstructure:"api_key"`       // API Key
	BaseURL      string        `mapstructure:"base_url"`      // 接口地址
	Model        string        `mapstructure:"model"`         // 模型名称
	Timeout      time.Duration `mapstructure:"timeout"`       // 单次请求超时
	SystemPrompt string        `mapstructure:"system_prompt"` // 系统提示词
	HistoryLimit int           `mapstructure:"history_limit"` // 携带的历史消息条数
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// JanitorConfig 过期会话清理配置
type JanitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`  // 是否启用
	Schedule string        `mapstructure:"schedule"` // cron 表达式
	MaxIdle  time.Duration `mapstructure:"max_idle"` // 超过该时长没有新消息的会话会被删除
}

// RateLimitConfig 对话接口限流配置（按客户端 IP）
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// KnowledgeConfig 知识库检索配置
type KnowledgeConfig struct {
	Enabled    bool `mapstructure:"enabled"`     // 是否在回答前检索知识库
	Seed       bool `mapstructure:"seed"`        // 表为空时写入初始数据
	MaxResults int  `mapstructure:"max_results"` // 每类数据源最多取的条数
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	// 创建新的 viper 实例
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	v.AutomaticEnv()
	// 将环境变量中的 _ 映射到配置的 .
	// 例如: MYSQL_HOST -> mysql.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 绑定环境变量
	bindEnvVariables(v)

	// 设置默认值（当配置文件中未指定时使用）
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// 将配置解析到结构体
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// MySQL 配置
	v.BindEnv("mysql.host", "MYSQL_HOST")
	v.BindEnv("mysql.port", "MYSQL_PORT")
	v.BindEnv("mysql.username", "MYSQL_USERNAME")
	v.BindEnv("mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("mysql.database", "MYSQL_DATABASE")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// AI 配置，兼容 DashScope 的变量名
	v.BindEnv("ai.api_key", "AI_API_KEY", "DASHSCOPE_API_KEY", "QWEN_API_KEY")
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.model", "AI_MODEL")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.version", "1.0.0")

	// MySQL 默认配置
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.database", "klu_agent")
	v.SetDefault("mysql.charset", "utf8mb4")
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.max_open_conns", 100)
	v.SetDefault("mysql.max_lifetime", 3600)

	// Redis 默认配置
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.ttl", "30s")

	// AI 默认配置
	v.SetDefault("ai.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("ai.model", "qwen-turbo")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.system_prompt", DefaultSystemPrompt)
	v.SetDefault("ai.history_limit", 10)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// 清理任务默认配置：每小时执行，删除 30 天没有活动的会话
	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.schedule", "@hourly")
	v.SetDefault("janitor.max_idle", "720h")

	// 限流默认配置
	v.SetDefault("ratelimit.requests_per_second", 2)
	v.SetDefault("ratelimit.burst", 5)

	// 知识库默认配置
	v.SetDefault("knowledge.enabled", true)
	v.SetDefault("knowledge.seed", true)
	v.SetDefault("knowledge.max_results", 3)
}

// DefaultSystemPrompt 默认的系统提示词
const DefaultSystemPrompt = "You are KLU Agent, a helpful assistant for students and staff of KL University.\n" +
	"Answer questions about admissions, courses, faculty, facilities and campus life.\n" +
	"Be concise. When context information is provided, base the answer on it and do not make up facts that are not in it.\n" +
	"If you do not know the answer, say so instead of guessing."
