package models

import (
	"time"

	"gorm.io/gorm"
)

// ReferralEvent 推荐佣金事件表（追加写）
// 唯一索引保证同一推荐人对同一订单至多产生一条事件。
type ReferralEvent struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                                           // 主键
	ReferralMemberID uint           `gorm:"not null;index;uniqueIndex:idx_referral_event_unique" json:"referral_member_id"` // 推荐人ID
	OrderID          uint           `gorm:"not null;uniqueIndex:idx_referral_event_unique" json:"order_id"`                 // 订单ID
	CustomerID       uint           `gorm:"not null;index" json:"customer_id"`                                              // 下单客户ID
	EventType        string         `gorm:"type:varchar(30);not null" json:"event_type"`                                    // 事件类型：首购/复购
	OrderAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`                      // 订单金额
	CommissionTier   string         `gorm:"type:varchar(64)" json:"commission_tier"`                                        // 命中的佣金档位描述
	CommissionRate   Money          `gorm:"type:decimal(10,2);not null;default:0" json:"commission_rate"`                   // 生效费率（百分比）
	CommissionAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                 // 佣金金额
	Status           string         `gorm:"type:varchar(20);not null;default:'calculated';index" json:"status"`             // 事件状态：已计算/已冲销
	PeriodMonth      string         `gorm:"type:varchar(7);index" json:"period_month"`                                      // 归属月份 YYYY-MM
	ReversedAt       *time.Time     `json:"reversed_at,omitempty"`                                                          // 冲销时间
	ReverseReason    string         `gorm:"type:varchar(200)" json:"reverse_reason,omitempty"`                              // 冲销原因
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                                        // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                                        // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                                 // 软删除时间

	ReferralMember *ReferralMember `gorm:"foreignKey:ReferralMemberID" json:"referral_member,omitempty"` // 关联推荐人
	Order          *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`                    // 关联订单
}

// TableName 指定表名
func (ReferralEvent) TableName() string {
	return "referral_events"
}
