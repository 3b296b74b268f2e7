package models

import (
	"time"

	"gorm.io/gorm"
)

// ReferralMember 推荐人档案表
// current_month_revenue 按 revenue_month 惰性清零，unpaid_commission 仅由佣金流水驱动变化。
type ReferralMember struct {
	ID                     uint           `gorm:"primarykey" json:"id"`                                               // 主键
	CustomerID             uint           `gorm:"uniqueIndex;not null" json:"customer_id"`                            // 关联客户ID
	ReferralCode           string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"referral_code"`         // 推荐码（大小写不敏感匹配）
	UserEmail              string         `gorm:"type:varchar(200);index" json:"user_email"`                          // 推荐人邮箱（自推校验用）
	Status                 string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`     // 推荐人状态
	CurrentMonthRevenue    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"current_month_revenue"` // 当月推荐销售额（按月清零）
	RevenueMonth           string         `gorm:"type:varchar(7)" json:"revenue_month"`                               // 当月销售额所属月份 YYYY-MM
	TotalReferralRevenue   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_referral_revenue"` // 累计推荐销售额
	UnpaidCommission       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unpaid_commission"`     // 未结佣金余额
	TotalReferredCustomers int            `gorm:"not null;default:0" json:"total_referred_customers"`                 // 累计推荐客户数
	SeederRankBonus        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"seeder_rank_bonus"`     // 等级加成（百分点，叠加在档位费率上）
	CustomCommissionRate   Money          `gorm:"type:decimal(10,2);not null;default:0" json:"custom_commission_rate"` // 自定义佣金费率（百分比）
	CustomRateEnabled      bool           `gorm:"not null;default:false" json:"custom_rate_enabled"`                  // 启用后自定义费率整体取代档位费率与加成
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`                                            // 创建时间
	UpdatedAt              time.Time      `gorm:"index" json:"updated_at"`                                            // 更新时间
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`                                                     // 软删除时间

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 关联客户
}

// TableName 指定表名
func (ReferralMember) TableName() string {
	return "referral_members"
}
