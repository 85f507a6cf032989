// Package configs 管理应用程序配置，包括服务器、日志、对象存储、消息队列和对账任务的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing S3 config:
//
//	config := configs.GetConfig()
//	s3Config := config.S3
//	endpoint := s3Config.GetEndpointURL()
//	fmt.Println("S3 Endpoint:", endpoint)
//
// Example accessing Reconcile config:
//
//	config := configs.GetConfig()
//	cron := config.Reconcile.Cron
//	fmt.Println("Reconcile cron:", cron)
package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/filetally/pkg/rule"
)

// AppVersion 应用版本号.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀，例如 FILETALLY_SERVER_PORT.
const EnvPrefix = "FILETALLY"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 追踪配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置（存在性探测）
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置（对账确认账本）
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 审计数据库配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 审计事件开关
		Reconcile      ReconcileConfig      `mapstructure:"reconcile"`       // ReconcileConfig 对账配置
		Source         SourceConfig         `mapstructure:"source"`          // SourceConfig 文件事件来源配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 命令接口限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 探测熔断
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 当目录下没有配置文件时，使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.AutomaticEnv()

	hasFile := false

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)

		hasFile = true
	} else if path != "" {
		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, dir := range []string{path, filepath.Join(path, "configs")} {
			for _, ext := range exts {
				cfg := filepath.Join(dir, "config."+ext)
				if _, err := os.Stat(cfg); err == nil {
					appViper.SetConfigFile(cfg)

					hasFile = true

					break
				}
			}

			if hasFile {
				break
			}
		}
	}

	// 读取配置
	if hasFile {
		if err := appViper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(globalConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if hasFile {
		reloadConfigs(appViper, globalConfig.Server.ReloadConfig)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig    ServerConfig
		logConfig       LogConfig
		metricsConfig   MetricsConfig
		tracingConfig   TracingConfig
		s3Config        S3Config
		kvConfig        KVConfig
		mqConfig        MQConfig
		dbConfig        DBConfig
		eventsConfig    EventsConfig
		reconcileConfig ReconcileConfig
		sourceConfig    SourceConfig
		rateLimitConfig RateLimitConfig
		cbConfig        CircuitBreakerConfig
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	s3Config.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	reconcileConfig.setDefaults(v)
	sourceConfig.setDefaults(v)
	rateLimitConfig.setDefaults(v)
	cbConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		var next AppConfig
		if err := v.Unmarshal(&next); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := rule.ValidateStruct(next); err != nil {
			fmt.Printf("Ignoring invalid config: %v\n", err)
			return
		}

		globalConfig = next
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例.
func GetViper() *viper.Viper {
	return appViper
}

// redactedValue 替换敏感字段的占位符.
const redactedValue = "******"

func redact(s *string) {
	if *s != "" {
		*s = redactedValue
	}
}

// Redacted 返回隐去密码与密钥的配置副本，用于打印.
func (c AppConfig) Redacted() AppConfig {
	redact(&c.S3.AccessKeyID)
	redact(&c.S3.SecretAccessKey)
	redact(&c.DB.Password)
	redact(&c.KV.Redis.Password)
	redact(&c.KV.NATS.Password)
	redact(&c.MQ.Common.Password)
	redact(&c.MQ.NATS.JWT)
	redact(&c.MQ.NATS.NKey)
	redact(&c.MQ.Redis.Password)

	return c
}
