package models

import (
	"time"
)

// CheckoutLine 交给结账方的只读行
type CheckoutLine struct {
	LineKey   string                `json:"line_key"`
	ItemID    string                `json:"item_id"`
	OutletID  string                `json:"outlet_id"`
	Name      string                `json:"name"`
	Variation *Variation            `json:"variation,omitempty"`
	Addons    map[string]AddonGroup `json:"addons,omitempty"`
	Quantity  int                   `json:"quantity"`
	UnitPrice Money                 `json:"unit_price"`
	LineTotal Money                 `json:"line_total"`
	IsMess    bool                  `json:"is_mess_item"`
}

// CheckoutSnapshot 结账交接快照
type CheckoutSnapshot struct {
	HandoffNo string         `json:"handoff_no"`
	SessionID string         `json:"session_id"`
	Lines     []CheckoutLine `json:"lines"`
	Total     Money          `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
}

// CheckoutHandoff 结账交接记录
type CheckoutHandoff struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                    // 主键
	HandoffNo   string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"handoff_no"` // 交接单号
	SessionID   string     `gorm:"type:varchar(64);not null;index" json:"session_id"`       // 会话ID
	Payload     string     `gorm:"type:text;not null" json:"-"`                             // 快照 JSON
	TotalAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	LineCount   int        `gorm:"not null;default:0" json:"line_count"`
	Status      string     `gorm:"type:varchar(20);not null;index" json:"status"` // pending / delivered / failed
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`            // 投递次数
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`         // 最近一次错误
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`                        // 投递成功时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (CheckoutHandoff) TableName() string {
	return "checkout_handoffs"
}
