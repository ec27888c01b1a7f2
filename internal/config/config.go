package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mall-next/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	UserJWT      JWTConfig          `mapstructure:"user_jwt"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Order        OrderConfig        `mapstructure:"order"`
	Installment  InstallmentConfig  `mapstructure:"installment"`
	Seckill      SeckillConfig      `mapstructure:"seckill"`
	Crowdfunding CrowdfundingConfig `mapstructure:"crowdfunding"`
	Reconcile    ReconcileConfig    `mapstructure:"reconcile"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Search       SearchConfig       `mapstructure:"search"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host                string `mapstructure:"host"`
	Port                string `mapstructure:"port"`
	Mode                string `mapstructure:"mode"` // debug / release
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// ReadTimeout 请求读取超时
func (c ServerConfig) ReadTimeout() time.Duration {
	return secondsOr(c.ReadTimeoutSeconds, 15*time.Second)
}

// WriteTimeout 响应写出超时，需大于支付网关超时
func (c ServerConfig) WriteTimeout() time.Duration {
	return secondsOr(c.WriteTimeoutSeconds, 30*time.Second)
}

// LogConfig 日志配置
type LogConfig struct {
	Service    string `mapstructure:"service"`
	Level      string `mapstructure:"level"`
	Stdout     bool   `mapstructure:"stdout"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Service:    c.Service,
		Level:      c.Level,
		Stdout:     c.Stdout,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
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
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置（令牌由外部认证服务签发，此处仅校验）
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
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
}

// OrderConfig 订单配置
type OrderConfig struct {
	TTLMinutes        int `mapstructure:"ttl_minutes"`
	SeckillTTLMinutes int `mapstructure:"seckill_ttl_minutes"`
}

// TTL 普通订单未支付自动关闭时间
func (c OrderConfig) TTL() time.Duration {
	return minutesOr(c.TTLMinutes, 30)
}

// SeckillTTL 秒杀订单未支付自动关闭时间
func (c OrderConfig) SeckillTTL() time.Duration {
	return minutesOr(c.SeckillTTLMinutes, 10)
}

// InstallmentConfig 分期配置；费率均为百分比
type InstallmentConfig struct {
	FeeRates        map[string]string `mapstructure:"fee_rates"` // 期数 -> 手续费率
	FineRate        string            `mapstructure:"fine_rate"` // 日逾期费率
	MinAmount       string            `mapstructure:"min_amount"`
	DueIntervalDays int               `mapstructure:"due_interval_days"`
}

// FeeRate 获取指定期数的手续费率，未配置的期数返回 false
func (c InstallmentConfig) FeeRate(count int) (decimal.Decimal, bool) {
	raw, ok := c.FeeRates[strconv.Itoa(count)]
	if !ok {
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || rate.IsNegative() {
		return decimal.Zero, false
	}
	return rate, true
}

// Counts 已配置的可选期数（升序）
func (c InstallmentConfig) Counts() []int {
	counts := make([]int, 0, len(c.FeeRates))
	for key := range c.FeeRates {
		if n, err := strconv.Atoi(strings.TrimSpace(key)); err == nil && n > 0 {
			counts = append(counts, n)
		}
	}
	sort.Ints(counts)
	return counts
}

// FineRateDecimal 日逾期费率
func (c InstallmentConfig) FineRateDecimal() (decimal.Decimal, error) {
	return parseRequiredDecimal("installment.fine_rate", c.FineRate)
}

// MinAmountDecimal 分期最低订单金额
func (c InstallmentConfig) MinAmountDecimal() (decimal.Decimal, error) {
	return parseRequiredDecimal("installment.min_amount", c.MinAmount)
}

// DueInterval 相邻两期的间隔天数
func (c InstallmentConfig) DueInterval() int {
	if c.DueIntervalDays <= 0 {
		return 30
	}
	return c.DueIntervalDays
}

// SeckillConfig 秒杀配置
type SeckillConfig struct {
	DropPercent    int     `mapstructure:"drop_percent"`     // 随机丢弃请求百分比
	RateLimitQPS   float64 `mapstructure:"rate_limit_qps"`   // 单 IP 每秒请求数
	RateLimitBurst int     `mapstructure:"rate_limit_burst"` // 单 IP 突发请求数
}

// CrowdfundingConfig 众筹配置
type CrowdfundingConfig struct {
	FinalizeIntervalSeconds int `mapstructure:"finalize_interval_seconds"`
}

// FinalizeInterval 众筹结算扫描间隔
func (c CrowdfundingConfig) FinalizeInterval() time.Duration {
	return secondsOr(c.FinalizeIntervalSeconds, time.Minute)
}

// ReconcileConfig 定时对账配置
type ReconcileConfig struct {
	FineIntervalMinutes        int `mapstructure:"fine_interval_minutes"`
	RefundCheckIntervalSeconds int `mapstructure:"refund_check_interval_seconds"`
	ExpireSweepIntervalSeconds int `mapstructure:"expire_sweep_interval_seconds"`
}

// FineInterval 逾期费计算间隔
func (c ReconcileConfig) FineInterval() time.Duration {
	if c.FineIntervalMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.FineIntervalMinutes) * time.Minute
}

// RefundCheckInterval 分期退款状态核对间隔
func (c ReconcileConfig) RefundCheckInterval() time.Duration {
	return secondsOr(c.RefundCheckIntervalSeconds, 5*time.Minute)
}

// ExpireSweepInterval 过期订单兜底扫描间隔
func (c ReconcileConfig) ExpireSweepInterval() time.Duration {
	return secondsOr(c.ExpireSweepIntervalSeconds, 5*time.Minute)
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// PaymentConfig 支付配置
type PaymentConfig struct {
	TimeoutSeconds int          `mapstructure:"timeout_seconds"`
	Alipay         AlipayConfig `mapstructure:"alipay"`
	Wechat         WechatConfig `mapstructure:"wechat"`
}

// Timeout 网关调用超时
func (c PaymentConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AlipayConfig 支付宝配置
type AlipayConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	AppID                string `mapstructure:"app_id"`
	PrivateKey           string `mapstructure:"private_key"`
	PublicKey            string `mapstructure:"public_key"`
	Production           bool   `mapstructure:"production"`
	NotifyURL            string `mapstructure:"notify_url"`
	ReturnURL            string `mapstructure:"return_url"`
	InstallmentNotifyURL string `mapstructure:"installment_notify_url"`
}

// WechatConfig 微信支付配置
type WechatConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	AppID           string `mapstructure:"app_id"`
	MchID           string `mapstructure:"mch_id"`
	SerialNo        string `mapstructure:"serial_no"`
	PrivateKey      string `mapstructure:"private_key"`
	APIV3Key        string `mapstructure:"api_v3_key"`
	NotifyURL       string `mapstructure:"notify_url"`
	RefundNotifyURL string `mapstructure:"refund_notify_url"`
}

// SearchConfig 搜索导出配置
type SearchConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	ProductTopic string   `mapstructure:"product_topic"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

func minutesOr(minutes, fallback int) time.Duration {
	if minutes <= 0 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}

func parseRequiredDecimal(key, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is not configured", key)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s is invalid: %w", key, err)
	}
	return value, nil
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults(viper.GetViper())

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("log.service", "mall-next")
	v.SetDefault("log.level", "")
	v.SetDefault("log.stdout", false)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/mall.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mall")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("order.ttl_minutes", 30)
	v.SetDefault("order.seckill_ttl_minutes", 10)
	v.SetDefault("installment.fee_rates", map[string]string{
		"3":  "1.5",
		"6":  "2",
		"12": "2.5",
	})
	v.SetDefault("installment.fine_rate", "0.05")
	v.SetDefault("installment.min_amount", "300")
	v.SetDefault("installment.due_interval_days", 30)
	v.SetDefault("seckill.drop_percent", 0)
	v.SetDefault("seckill.rate_limit_qps", 20)
	v.SetDefault("seckill.rate_limit_burst", 40)
	v.SetDefault("crowdfunding.finalize_interval_seconds", 60)
	v.SetDefault("reconcile.fine_interval_minutes", 1440)
	v.SetDefault("reconcile.refund_check_interval_seconds", 300)
	v.SetDefault("reconcile.expire_sweep_interval_seconds", 300)
	v.SetDefault("payment.timeout_seconds", 10)
	v.SetDefault("payment.alipay.enabled", false)
	v.SetDefault("payment.alipay.production", false)
	v.SetDefault("payment.wechat.enabled", false)
	v.SetDefault("search.enabled", false)
	v.SetDefault("search.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("search.product_topic", "mall.products")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
