package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"compsystem/internal/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogSQL       bool   `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	CompensationEvent string `mapstructure:"compensation_event"`
}

// BusinessConfig 门店部署差异都在这里配置
type BusinessConfig struct {
	RequireReasonAndApprover bool   `mapstructure:"require_reason_and_approver"`
	CatalogVariant           string `mapstructure:"catalog_variant"`
	PageSize                 int    `mapstructure:"page_size"`
	Timezone                 string `mapstructure:"timezone"`
	MaxRetryCount            int    `mapstructure:"max_retry_count"`
	MaxImportRows            int    `mapstructure:"max_import_rows"`
	MaxUploadMB              int    `mapstructure:"max_upload_mb"`
}

type AuthConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	JWTSecret         string `mapstructure:"jwt_secret"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
	BootstrapEmail    string `mapstructure:"bootstrap_email"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
	BcryptCost        int    `mapstructure:"bcrypt_cost"`
}

// StorageConfig driver: mysql | memory
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// LoadConfig 加载配置：.env（可选）-> yaml 文件（可选）-> 环境变量（COMP_ 前缀）
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在是正常情况
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "comp")
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.log_sql", false)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.compensation_event", "compensation_event")

	v.SetDefault("business.require_reason_and_approver", false)
	v.SetDefault("business.catalog_variant", string(model.VariantTwoToppings))
	v.SetDefault("business.page_size", model.DefaultPageSize)
	v.SetDefault("business.timezone", "Asia/Jerusalem")
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.max_import_rows", 5000)
	v.SetDefault("business.max_upload_mb", 10)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl_minutes", 720)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.bootstrap_email", "")
	v.SetDefault("auth.bootstrap_password", "")

	v.SetDefault("storage.driver", StorageMySQL)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate 启动前的配置校验
func (c *Config) Validate() error {
	if !model.CatalogVariant(c.Business.CatalogVariant).Valid() {
		return fmt.Errorf("business.catalog_variant 不合法: %q", c.Business.CatalogVariant)
	}
	if c.Business.PageSize <= 0 {
		return fmt.Errorf("business.page_size 必须大于0: %d", c.Business.PageSize)
	}
	if c.Business.MaxUploadMB <= 0 {
		return fmt.Errorf("business.max_upload_mb 必须大于0: %d", c.Business.MaxUploadMB)
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("business.timezone 不合法: %w", err)
	}
	switch c.Storage.Driver {
	case StorageMySQL, StorageMemory:
	default:
		return fmt.Errorf("storage.driver 不合法: %q", c.Storage.Driver)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.enabled 时必须配置 auth.jwt_secret")
	}
	return nil
}

// Policy 由业务配置生成补偿策略
func (c *Config) Policy() model.CompensationPolicy {
	return model.CompensationPolicy{
		RequireReasonAndApprover: c.Business.RequireReasonAndApprover,
		CatalogVariant:           model.CatalogVariant(c.Business.CatalogVariant),
	}
}

// Location 业务时区，用于日期筛选与导出
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MaxUploadBytes 导入文件的字节上限
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Business.MaxUploadMB) << 20
}

// SessionTTL 会话有效期
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMinutes) * time.Minute
}
