package configs

import "github.com/spf13/viper"

const (
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 50.0
	DefaultRateLimitBurst   = 100
	// DefaultRateLimitKey 按聊天标识限流，上游机器人转发事件时携带该请求头.
	DefaultRateLimitKey = "global"
)

// DefaultRateLimitExempt 默认不限流的路径前缀，健康检查不应被探针流量挤占.
var DefaultRateLimitExempt = []string{"/api/v1/health"}

// RateLimitConfig 接口限流配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"     rule:"gte=0"`
	Burst   int     `mapstructure:"burst"   rule:"gte=0"`
	// Key 限流维度：global、ip 或 header:Header-Name，例如 header:X-Chat-ID.
	Key string `mapstructure:"key" rule:"omitempty,ratelimitkey"`
	// Exempt 跳过限流的路径前缀.
	Exempt []string `mapstructure:"exempt"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.exempt", DefaultRateLimitExempt)
}
