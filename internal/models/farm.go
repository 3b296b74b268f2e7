package models

import (
	"time"

	"gorm.io/gorm"
)

// Farm 农场表
type Farm struct {
	ID           uint           `gorm:"primarykey" json:"id"`                 // 主键
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`     // 唯一标识
	Name         string         `gorm:"not null" json:"name"`                 // 农场名称
	Region       string         `gorm:"type:varchar(100);index" json:"region"` // 所在地区
	ContactEmail string         `gorm:"type:varchar(200)" json:"contact_email"` // 联系邮箱
	Description  string         `gorm:"type:text" json:"description"`         // 农场简介
	IsActive     bool           `gorm:"default:true;index" json:"is_active"`  // 是否启用
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`              // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间
}

// TableName 指定表名
func (Farm) TableName() string {
	return "farms"
}
