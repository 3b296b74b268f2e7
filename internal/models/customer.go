package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 客户表
type Customer struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                         // 主键
	Email              string         `gorm:"uniqueIndex;not null" json:"email"`            // 邮箱
	Phone              string         `gorm:"type:varchar(32);index" json:"phone"`          // 手机号
	PasswordHash       string         `gorm:"not null" json:"-"`                            // 密码哈希（不返回给前端）
	DisplayName        string         `gorm:"default:''" json:"display_name"`               // 昵称
	Status             string         `gorm:"default:'active'" json:"status"`               // 账号状态
	ReferrerID         *uint          `gorm:"index" json:"referrer_id,omitempty"`           // 归因推荐人ID
	ReferralLocked     bool           `gorm:"not null;default:false" json:"referral_locked"` // 归因锁定后推荐人不可再变
	ReferralCodeUsed   string         `gorm:"type:varchar(32)" json:"referral_code_used"`   // 首次归因使用的推荐码
	IsReferredCustomer bool           `gorm:"not null;default:false" json:"is_referred_customer"` // 是否被推荐客户
	ReferredAt         *time.Time     `json:"referred_at,omitempty"`                        // 归因时间
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                  // Token 版本号，改密后递增
	TokenInvalidBefore *time.Time     `json:"-"`                                            // 此时间之前签发的 Token 失效
	LastLoginAt        *time.Time     `json:"last_login_at"`                                // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                      // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
