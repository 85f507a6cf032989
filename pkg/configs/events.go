package configs

import "github.com/spf13/viper"

// EventsConfig 控制审计事件的发布开关（全局与分主题）以及落库.
type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // 总开关
	Recorded bool   `mapstructure:"recorded"` // 文件登记事件
	Removed  bool   `mapstructure:"removed"`  // 文件移除事件（按标识、按名称、对账）
	Persist  bool   `mapstructure:"persist"`  // 是否写入审计表（需要 db.enabled）
	Producer string `mapstructure:"producer"` // 事件头中的生产者标识
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.recorded", true)
	v.SetDefault("events.removed", true)
	v.SetDefault("events.persist", false)
	v.SetDefault("events.producer", "filetally")
}
