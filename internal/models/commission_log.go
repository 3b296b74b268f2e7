package models

import (
	"time"
)

// CommissionLog 佣金余额流水表（追加写，不更新不删除）
// balance_after 必须等于变动落库后的 unpaid_commission。
type CommissionLog struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                          // 主键
	ReferralMemberID uint      `gorm:"not null;index" json:"referral_member_id"`                      // 推荐人ID
	EventID          *uint     `gorm:"index" json:"event_id,omitempty"`                               // 关联佣金事件ID
	OrderID          *uint     `gorm:"index" json:"order_id,omitempty"`                               // 关联订单ID
	ChangeType       string    `gorm:"type:varchar(30);not null;index" json:"change_type"`            // 变动类型：入账/冲销
	AffectedAmount   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"affected_amount"`  // 变动金额（正数）
	BalanceBefore    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"`   // 变动前余额
	BalanceAfter     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`    // 变动后余额
	TriggeredBy      string    `gorm:"type:varchar(64)" json:"triggered_by"`                          // 触发来源
	Reason           string    `gorm:"type:varchar(200)" json:"reason,omitempty"`                     // 变动说明
	MetadataJSON     JSON      `gorm:"type:json" json:"metadata,omitempty"`                           // 附加元数据
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
}

// TableName 指定表名
func (CommissionLog) TableName() string {
	return "commission_logs"
}
