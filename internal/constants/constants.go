package constants

// 购物车快照常量
const (
	// CartSnapshotSchemaVersion 当前持久化快照结构版本
	CartSnapshotSchemaVersion = 1
	// MessItemMaxQuantity 包月（mess）商品的数量上限
	MessItemMaxQuantity = 1
)

// 快照存储后端
const (
	CartStorageDatabase = "database"
	CartStorageRedis    = "redis"
	CartStorageBoth     = "both"
)

// 购物车操作名称（用于日志与指标）
const (
	CartOpAdd       = "add"
	CartOpIncrease  = "increase"
	CartOpDecrease  = "decrease"
	CartOpRemove    = "remove"
	CartOpRemoveAll = "remove_all"
	CartOpHydrate   = "hydrate"
)

// 结账交接状态常量
const (
	HandoffStatusPending   = "pending"
	HandoffStatusDelivered = "delivered"
	HandoffStatusFailed    = "failed"
)

// 异步队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskCheckoutHandoff = "checkout:handoff"
)

// HTTP 头与上下文键
const (
	HeaderCartSession     = "X-Cart-Session"
	HeaderRequestID       = "X-Request-ID"
	ContextKeyCartSession = "cart_session_id"
	ContextKeyRequestID   = "request_id"
)
