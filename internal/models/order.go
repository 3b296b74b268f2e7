package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                           uint           `gorm:"primarykey" json:"id"`                                             // 主键
	OrderNo                      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`            // 订单编号
	CustomerID                   uint           `gorm:"index;not null" json:"customer_id"`                                // 下单客户ID
	Status                       string         `gorm:"index;not null" json:"status"`                                     // 订单状态
	PaymentStatus                string         `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"` // 支付状态
	Currency                     string         `gorm:"not null" json:"currency"`                                         // 币种
	TotalAmount                  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`        // 实付金额
	ReferrerID                   *uint          `gorm:"index" json:"referrer_id,omitempty"`                               // 佣金归属推荐人ID
	ReferralCodeUsed             string         `gorm:"type:varchar(32)" json:"referral_code_used,omitempty"`             // 结算时使用的推荐码
	ReferralCommissionCalculated bool           `gorm:"not null;default:false" json:"referral_commission_calculated"`     // 佣金结算标记，置真后不再回退
	Remark                       string         `gorm:"type:varchar(500)" json:"remark,omitempty"`                        // 买家备注
	ClientIP                     string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                      // 下单客户端IP
	ExpiresAt                    *time.Time     `gorm:"index" json:"expires_at"`                                          // 支付过期时间
	PaidAt                       *time.Time     `gorm:"index" json:"paid_at"`                                             // 支付时间
	CanceledAt                   *time.Time     `gorm:"index" json:"canceled_at"`                                         // 取消时间
	RefundedAt                   *time.Time     `gorm:"index" json:"refunded_at"`                                         // 退款时间
	CreatedAt                    time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt                    time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt                    gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`       // 订单项
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 关联客户
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
