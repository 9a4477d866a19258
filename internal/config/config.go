package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Cart     CartConfig     `mapstructure:"cart"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Level:      c.Level,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres/mysql）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
	MaxRetry    int            `mapstructure:"max_retry"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// CartConfig 购物车引擎配置
type CartConfig struct {
	Storage          string          `mapstructure:"storage"` // database / redis / both
	SnapshotTTLHours int             `mapstructure:"snapshot_ttl_hours"`
	LoadTimeoutMS    int             `mapstructure:"load_timeout_ms"`
	WriteTimeoutMS   int             `mapstructure:"write_timeout_ms"`
	PurgeIntervalMin int             `mapstructure:"purge_interval_minutes"`
	IdleEvictMin     int             `mapstructure:"idle_evict_minutes"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

// SnapshotTTL 快照有效期，0 表示不过期
func (c CartConfig) SnapshotTTL() time.Duration {
	if c.SnapshotTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

// LoadTimeout 启动加载快照超时
func (c CartConfig) LoadTimeout() time.Duration {
	return millisOrDefault(c.LoadTimeoutMS, 2*time.Second)
}

// WriteTimeout 单次快照写入超时
func (c CartConfig) WriteTimeout() time.Duration {
	return millisOrDefault(c.WriteTimeoutMS, 3*time.Second)
}

// PurgeInterval 过期快照清理间隔
func (c CartConfig) PurgeInterval() time.Duration {
	if c.PurgeIntervalMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.PurgeIntervalMin) * time.Minute
}

// IdleEvict 内存购物车闲置释放时间，<=0 关闭释放
func (c CartConfig) IdleEvict() time.Duration {
	if c.IdleEvictMin <= 0 {
		return 0
	}
	return time.Duration(c.IdleEvictMin) * time.Minute
}

// NormalizedStorage 规范化的存储后端
func (c CartConfig) NormalizedStorage() string {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case constants.CartStorageRedis:
		return constants.CartStorageRedis
	case constants.CartStorageBoth:
		return constants.CartStorageBoth
	default:
		return constants.CartStorageDatabase
	}
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// CheckoutConfig 结账交接配置
type CheckoutConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	TimeoutMS   int    `mapstructure:"timeout_ms"`
	LockSeconds int    `mapstructure:"lock_seconds"`
	APIKey      string `mapstructure:"api_key"`
}

// Timeout 请求结账方的超时
func (c CheckoutConfig) Timeout() time.Duration {
	return millisOrDefault(c.TimeoutMS, 10*time.Second)
}

// LockTTL 投递锁有效期
func (c CheckoutConfig) LockTTL() time.Duration {
	if c.LockSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.LockSeconds) * time.Second
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func millisOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// SetDefaults 设置默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "cart.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.level", "")
	v.SetDefault("log.stdout", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/tiffin.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "tf")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.max_retry", 8)
	v.SetDefault("queue.queues", map[string]int{
		constants.QueueDefault:  10,
		constants.QueueCritical: 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Accept-Encoding",
		"Cache-Control",
		"X-Requested-With",
		constants.HeaderRequestID,
		constants.HeaderCartSession,
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("cart.storage", constants.CartStorageBoth)
	v.SetDefault("cart.snapshot_ttl_hours", 72)
	v.SetDefault("cart.load_timeout_ms", 2000)
	v.SetDefault("cart.write_timeout_ms", 3000)
	v.SetDefault("cart.purge_interval_minutes", 60)
	v.SetDefault("cart.idle_evict_minutes", 30)
	v.SetDefault("cart.rate_limit.window_seconds", 10)
	v.SetDefault("cart.rate_limit.max_requests", 30)
	v.SetDefault("checkout.endpoint", "")
	v.SetDefault("checkout.timeout_ms", 10000)
	v.SetDefault("checkout.lock_seconds", 30)
	v.SetDefault("checkout.api_key", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()                                   // 自动读取环境变量
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// Decode 将 viper 内容解码为配置
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
