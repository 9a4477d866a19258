package service

import "errors"

// 购物车引擎错误
var (
	// ErrMessExclusivityViolation 购物车中已存在其他包月商品
	ErrMessExclusivityViolation = errors.New("cart already holds a different mess item")
	// ErrQuantityCapExceeded 包月商品数量上限为 1
	ErrQuantityCapExceeded = errors.New("mess item quantity is capped at 1")
	// ErrLineNotFound 目标购物车行已不存在
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidSelection 菜单选择缺少必要字段或价格非法
	ErrInvalidSelection = errors.New("invalid menu selection")
	// ErrCartEmpty 购物车为空
	ErrCartEmpty = errors.New("cart is empty")
	// ErrSessionInvalid 会话 ID 非法
	ErrSessionInvalid = errors.New("cart session invalid")
)

// 持久化与快照错误（仅记录日志，不阻塞购物车变更）
var (
	ErrPersistenceFailure = errors.New("cart persistence failure")
	ErrSnapshotCorrupt    = errors.New("cart snapshot corrupt")
)

// 结账交接错误
var (
	ErrHandoffNotFound       = errors.New("checkout handoff not found")
	ErrCheckoutRejected      = errors.New("checkout backend rejected handoff")
	ErrCheckoutNotConfigured = errors.New("checkout endpoint not configured")
)
