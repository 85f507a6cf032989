package configs

import "github.com/spf13/viper"

const (
	DefaultReconcileEnabled      = true
	DefaultReconcileCron         = "*/30 * * * *" // 每 30 分钟一次
	DefaultReconcileConcurrency  = 8
	DefaultReconcileErrorsAsGone = true
	DefaultReconcileConfirm      = 1
	DefaultReconcileLedgerTTL    = 24 * 3600 // 秒
	DefaultReconcileProbeRPS     = 20.0
	DefaultReconcileProbeBurst   = 20
)

// ReconcileConfig 对账（存在性探测）配置.
type ReconcileConfig struct {
	// Enabled 是否注册定时对账任务，手动触发不受影响.
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"        rule:"omitempty,cron"`
	// Concurrency 同时进行的探测数量.
	Concurrency int `mapstructure:"concurrency" rule:"min=1,max=256"`
	// ErrorsAsGone 探测出错时是否按"已删除"处理.
	ErrorsAsGone bool `mapstructure:"errors_as_gone"`
	// Confirmations 连续多少次判定为已删除后才真正移除.
	Confirmations int `mapstructure:"confirmations" rule:"min=1,max=100"`
	// LedgerTTL 判定计数在 KV 中的保留时间（秒）.
	LedgerTTL int `mapstructure:"ledger_ttl" rule:"min=0"`
	// ProbeRPS/ProbeBurst 探测限速，ProbeRPS<=0 表示不限速.
	ProbeRPS   float64 `mapstructure:"probe_rps"`
	ProbeBurst int     `mapstructure:"probe_burst" rule:"min=0"`
}

func (c *ReconcileConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("reconcile.enabled", DefaultReconcileEnabled)
	v.SetDefault("reconcile.cron", DefaultReconcileCron)
	v.SetDefault("reconcile.concurrency", DefaultReconcileConcurrency)
	v.SetDefault("reconcile.errors_as_gone", DefaultReconcileErrorsAsGone)
	v.SetDefault("reconcile.confirmations", DefaultReconcileConfirm)
	v.SetDefault("reconcile.ledger_ttl", DefaultReconcileLedgerTTL)
	v.SetDefault("reconcile.probe_rps", DefaultReconcileProbeRPS)
	v.SetDefault("reconcile.probe_burst", DefaultReconcileProbeBurst)
}
