package models

import (
	"time"
)

// CartSnapshotPayload 购物车持久化快照内容
type CartSnapshotPayload struct {
	SchemaVersion int        `json:"schema_version"`
	Lines         []CartLine `json:"lines"`
	MutatedAt     time.Time  `json:"mutated_at"`
}

// IsEmpty 快照是否为空
func (p CartSnapshotPayload) IsEmpty() bool {
	return len(p.Lines) == 0
}

// CartSnapshot 购物车快照表（每个会话一行）
type CartSnapshot struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                    // 主键
	SessionID     string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"session_id"` // 会话ID
	SchemaVersion int       `gorm:"not null;default:1" json:"schema_version"`                // 快照结构版本
	Payload       string    `gorm:"type:text;not null" json:"payload"`                       // 快照 JSON
	LineCount     int       `gorm:"not null;default:0" json:"line_count"`                    // 行数
	MutatedAt     time.Time `gorm:"index" json:"mutated_at"`                                 // 最后一次变更时间
	CreatedAt     time.Time `json:"created_at"`                                              // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
