package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DBConfig 远程数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Configured 是否配置了远程数据库凭据
func (c DBConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Name != ""
}

// BreakerConfig 远程调用熔断配置
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// RemoteConfig 远程同步配置
type RemoteConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DB           DBConfig      `yaml:"db"`
	Breaker      BreakerConfig `yaml:"breaker"`
	LoadTimeout  time.Duration `yaml:"load_timeout"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	SlowQuery    time.Duration `yaml:"slow_query"`
}

// StoreConfig 本地快照配置
type StoreConfig struct {
	Path         string `yaml:"path"`
	SeedDefaults bool   `yaml:"seed_defaults"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	InsightTTL time.Duration `yaml:"insight_ttl"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// CoachConfig AI 教练配置
type CoachConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// OtelConfig 链路追踪配置
type OtelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// ClockConfig 日期配置
type ClockConfig struct {
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Remote RemoteConfig `yaml:"remote"`
	JWT    JWTConfig    `yaml:"jwt"`
	Redis  RedisConfig  `yaml:"redis"`
	MQ     MQConfig     `yaml:"mq"`
	Coach  CoachConfig  `yaml:"coach"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Otel   OtelConfig   `yaml:"otel"`
	Clock  ClockConfig  `yaml:"clock"`
}

// RemoteConfigured 远程凭据是否在部署时配置完整（身份门控的第一个条件）
func (c *Config) RemoteConfigured() bool {
	return c.Remote.Enabled && c.Remote.DB.Configured() && c.JWT.Secret != ""
}

// Default 返回内置默认配置，base.yaml 缺失时使用
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         defaultStorePath(),
			SeedDefaults: true,
		},
		Remote: RemoteConfig{
			DB: DBConfig{Port: 5432, SSLMode: "disable"},
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          30 * time.Second,
			},
			LoadTimeout:  5 * time.Second,
			DrainTimeout: 3 * time.Second,
			SlowQuery:    100 * time.Millisecond,
		},
		JWT:    JWTConfig{TTL: 30 * 24 * time.Hour},
		Redis:  RedisConfig{InsightTTL: 6 * time.Hour},
		Coach:  CoachConfig{Model: "gemini-3-flash-preview", Timeout: 10 * time.Second},
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info"},
		Otel:   OtelConfig{ServiceName: "titan"},
		Clock:  ClockConfig{Timezone: "UTC"},
	}
}

func defaultStorePath() string {
	if env := os.Getenv("TITAN_HOME"); env != "" {
		return filepath.Join(env, "titan.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "titan.db"
	}
	return filepath.Join(home, ".titan", "titan.db")
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideCoachFromEnv 从环境变量覆盖 AI 教练配置
func OverrideCoachFromEnv(cfg *CoachConfig) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
}

// OverrideStoreFromEnv 从环境变量覆盖本地存储配置
func OverrideStoreFromEnv(cfg *StoreConfig) {
	if path := os.Getenv("TITAN_STORE_PATH"); path != "" {
		cfg.Path = path
	}
}
