package queue

// 主题命名规范：ft.<域>.<动作>，尽量稳定且向后兼容.
// 域：file(文件索引)、reconcile(对账).
const (
	// TopicFileObserved 传输层观察到一条聊天消息（可能携带文件），由追踪服务消费.
	TopicFileObserved = "ft.file.observed"
	// TopicFileRecorded 文件已登记到索引.
	TopicFileRecorded = "ft.file.recorded"
	// TopicFileRemoved 文件已从索引移除（按标识、按名称或对账）.
	TopicFileRemoved = "ft.file.removed"
	// TopicReconcileCompleted 一次对账结束.
	TopicReconcileCompleted = "ft.reconcile.completed"
)

// FileTopics 文件索引相关主题集合.
var FileTopics = []string{TopicFileObserved, TopicFileRecorded, TopicFileRemoved}

// AllTopics 全部主题.
var AllTopics = []string{TopicFileObserved, TopicFileRecorded, TopicFileRemoved, TopicReconcileCompleted}
