package configs

import "github.com/spf13/viper"

// SourceConfig 文件事件来源配置. HTTP 入口始终可用，MQ 订阅按需开启.
type SourceConfig struct {
	Subscribe bool   `mapstructure:"subscribe"` // 是否订阅 MQ 中的文件观察事件
	Topic     string `mapstructure:"topic"     rule:"required_if=Subscribe true"`
}

func (c *SourceConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("source.subscribe", true)
	v.SetDefault("source.topic", "ft.file.observed")
}
