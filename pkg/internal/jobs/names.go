package jobs

// 任务名称.
const (
	JobReconcileSweep = "reconcile.sweep"
	JobLedgerReport   = "reconcile.ledger_report"
)

// CronLedgerReport 每小时汇报一次待确认删除的文件数.
const CronLedgerReport = "5 * * * *"
