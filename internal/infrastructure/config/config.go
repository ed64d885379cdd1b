package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xiebiao/library/pkg/logger"
)

// Config 全局配置
// 加载顺序：config.yaml -> config.{env}.yaml -> 环境变量（LIBRARY_前缀）
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Log         LogConfig         `mapstructure:"log"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	MQ          MQConfig          `mapstructure:"mq"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	GRPC        GRPCConfig        `mapstructure:"grpc"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Pagination  PaginationConfig  `mapstructure:"pagination"`
	Admin       AdminConfig       `mapstructure:"admin"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | postgres
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 按驱动生成连接串
// mysql:    user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=true&loc=UTC
// postgres: host=... port=... user=... password=... dbname=... sslmode=disable TimeZone=UTC
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		sslmode := d.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, sslmode, d.Loc)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, url.QueryEscape(d.Loc))
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`  // debug | info | warn | error
	Format    string `mapstructure:"format"` // json | text
	Output    string `mapstructure:"output"` // stdout | stderr | /path/to/file
	AddSource bool   `mapstructure:"add_source"`
}

// Logger 转换为pkg/logger配置
func (l LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:     l.Level,
		Format:    l.Format,
		Output:    l.Output,
		AddSource: l.AddSource,
	}
}

// PaymentConfig 支付网关（Stripe Checkout）
// SecretKey为空表示未配置，网关返回Unavailable，借阅仍然成功
type PaymentConfig struct {
	SecretKey  string        `mapstructure:"secret_key"`
	Currency   string        `mapstructure:"currency"`
	BaseURL    string        `mapstructure:"base_url"` // 回调跳转链接的公网地址
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"` // 单次网关调用超时
}

// BreakerConfig 支付网关熔断
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

type TelegramConfig struct {
	Token        string `mapstructure:"token"`
	ChatID       int64  `mapstructure:"chat_id"`
	MessageLimit int    `mapstructure:"message_limit"`
}

// Enabled 是否配置了Telegram
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// MQConfig RabbitMQ；URL为空时通知走进程内队列
type MQConfig struct {
	URL       string `mapstructure:"url"`
	Exchange  string `mapstructure:"exchange"`
	Queue     string `mapstructure:"queue"`
	QueueSize int    `mapstructure:"queue_size"` // 进程内队列容量
	Prefetch  int    `mapstructure:"prefetch"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

type GRPCConfig struct {
	Port          int           `mapstructure:"port"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type IdempotencyConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type PaginationConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

// AdminConfig 这些邮箱注册后自动成为管理员
type AdminConfig struct {
	Emails []string `mapstructure:"emails"`
}

// Load 从 ./config 或当前目录加载
// LIBRARY_ENV=prod 时额外合并 config.prod.yaml
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom 从指定目录加载
func LoadFrom(dirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if env := os.Getenv("LIBRARY_ENV"); env != "" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("读取环境配置 config.%s.yaml 失败: %w", env, err)
		}
	}

	// LIBRARY_PAYMENT_SECRET_KEY -> payment.secret_key
	v.SetEnvPrefix("LIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 默认值；同时让AutomaticEnv能覆盖配置文件里没有出现的键
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "library")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "UTC")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_expire", 2*time.Hour)
	v.SetDefault("jwt.refresh_token_expire", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.base_url", "http://localhost:8080")
	v.SetDefault("payment.session_ttl", 30*time.Minute)
	v.SetDefault("payment.timeout", 10*time.Second)

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.consecutive_failures", 3)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.message_limit", 4096)

	v.SetDefault("mq.url", "")
	v.SetDefault("mq.exchange", "library.notifications")
	v.SetDefault("mq.queue", "library.notifications.telegram")
	v.SetDefault("mq.queue_size", 256)
	v.SetDefault("mq.prefetch", 4)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("grpc.port", 9090)
	v.SetDefault("grpc.check_interval", 15*time.Second)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", 24*time.Hour)

	v.SetDefault("idempotency.path", "data/idempotency.db")
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("pagination.page_size", 5)
	v.SetDefault("pagination.max_page_size", 100)

	v.SetDefault("admin.emails", []string{})
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}
	if cfg.GRPC.Port <= 0 || cfg.GRPC.Port > 65535 {
		return fmt.Errorf("无效的gRPC端口: %d", cfg.GRPC.Port)
	}
	if cfg.GRPC.Port == cfg.Server.Port {
		return fmt.Errorf("gRPC端口不能与HTTP端口相同: %d", cfg.GRPC.Port)
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("必须配置JWT密钥（jwt.secret 或 LIBRARY_JWT_SECRET）")
	}
	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "postgres" {
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}
	if cfg.Payment.SessionTTL < 30*time.Minute {
		// Stripe Checkout 要求过期时间至少30分钟
		return fmt.Errorf("支付会话有效期不能小于30分钟: %s", cfg.Payment.SessionTTL)
	}
	if cfg.Pagination.PageSize <= 0 || cfg.Pagination.PageSize > cfg.Pagination.MaxPageSize {
		return fmt.Errorf("无效的分页配置: page_size=%d max=%d", cfg.Pagination.PageSize, cfg.Pagination.MaxPageSize)
	}
	if cfg.Monitor.Enabled && cfg.Monitor.Interval <= 0 {
		return fmt.Errorf("逾期检查间隔必须大于0")
	}
	return nil
}
