// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，启动时加载一次，之后不再修改。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Search     SearchConfig     `mapstructure:"search"`
	Completion CompletionConfig `mapstructure:"completion"`
	Chat       ChatConfig       `mapstructure:"chat"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储关系型数据库的配置。
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用模型目录缓存。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// SearchConfig 存储搜索服务商的配置。
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
	Language   string `mapstructure:"language"`
}

// CompletionConfig 存储 LLM 补全服务商的配置。
type CompletionConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
}

// ChatConfig 控制两个入口各自的隐式会话策略。
// 取值 "always_create" 或 "most_recent"，见 service.SessionPolicy。
type ChatConfig struct {
	SessionPolicy       string `mapstructure:"session_policy"`
	CompatSessionPolicy string `mapstructure:"compat_session_policy"`
}

// Load 加载配置：内置默认值 < 可选的 YAML 文件 < 环境变量（含 .env 文件）。
// configPath 为空时只使用默认值和环境变量。
func Load(configPath string) (Config, error) {
	// .env 文件不存在时忽略错误
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("search.base_url", "https://api.search1api.com/search")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.language", "zh-CN")
	v.SetDefault("completion.base_url", "https://api.siliconflow.com/v1")
	v.SetDefault("completion.default_model", "Pro/deepseek-ai/DeepSeek-R1")
	v.SetDefault("chat.session_policy", "always_create")
	v.SetDefault("chat.compat_session_policy", "most_recent")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 环境变量优先于文件，键名与原部署保持一致
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindings := map[string]string{
		"server.port":                "SERVER_PORT",
		"server.mode":                "SERVER_MODE",
		"database.dsn":               "DATABASE_DSN",
		"redis.addr":                 "REDIS_ADDR",
		"redis.password":             "REDIS_PASSWORD",
		"redis.db":                   "REDIS_DB",
		"log.level":                  "LOG_LEVEL",
		"log.format":                 "LOG_FORMAT",
		"log.output_path":            "LOG_OUTPUT_PATH",
		"search.api_key":             "SEARCH1API_KEY",
		"search.base_url":            "SEARCH1API_URL",
		"search.max_results":         "SEARCH_MAX_RESULTS",
		"search.language":            "SEARCH_LANGUAGE",
		"completion.api_key":         "SILICONFLOW_API_KEY",
		"completion.base_url":        "SILICONFLOW_API_URL",
		"completion.default_model":   "DEFAULT_MODEL",
		"chat.session_policy":        "CHAT_SESSION_POLICY",
		"chat.compat_session_policy": "COMPAT_SESSION_POLICY",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return conf, nil
}
