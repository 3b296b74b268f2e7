package models

import (
	"time"

	"gorm.io/gorm"
)

// LoyaltyAccount 积分账户表
type LoyaltyAccount struct {
	ID            uint           `gorm:"primarykey" json:"id"`                        // 主键
	CustomerID    uint           `gorm:"uniqueIndex;not null" json:"customer_id"`     // 客户ID
	PointsBalance int64          `gorm:"not null;default:0" json:"points_balance"`    // 积分余额
	TotalEarned   int64          `gorm:"not null;default:0" json:"total_earned"`      // 累计获得积分
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间
}

// TableName 指定表名
func (LoyaltyAccount) TableName() string {
	return "loyalty_accounts"
}

// LoyaltyTransaction 积分流水表（追加写）
type LoyaltyTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`                               // 主键
	AccountID     uint      `gorm:"not null;index" json:"account_id"`                   // 积分账户ID
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`                    // 关联订单ID
	Type          string    `gorm:"type:varchar(30);not null;index" json:"type"`        // 流水类型
	Points        int64     `gorm:"not null" json:"points"`                             // 积分变动（可为负）
	BalanceBefore int64     `gorm:"not null;default:0" json:"balance_before"`           // 变动前余额
	BalanceAfter  int64     `gorm:"not null;default:0" json:"balance_after"`            // 变动后余额
	Remark        string    `gorm:"type:varchar(200)" json:"remark,omitempty"`          // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                            // 创建时间
}

// TableName 指定表名
func (LoyaltyTransaction) TableName() string {
	return "loyalty_transactions"
}
