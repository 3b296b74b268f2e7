package models

import (
	"time"

	"gorm.io/gorm"
)

// PreorderProduct 预售商品表
type PreorderProduct struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                       // 主键
	FarmID         uint           `gorm:"not null;index" json:"farm_id"`                              // 农场ID
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`                           // 唯一标识
	Title          string         `gorm:"not null" json:"title"`                                      // 商品标题
	Description    string         `gorm:"type:text" json:"description"`                               // 商品描述
	Unit           string         `gorm:"type:varchar(20);default:'box'" json:"unit"`                 // 售卖单位（箱/份/公斤）
	UnitPrice      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`    // 单价
	Images         StringArray    `gorm:"type:json" json:"images"`                                    // 商品图
	Tags           StringArray    `gorm:"type:json" json:"tags"`                                      // 标签
	ActiveLotCount int            `gorm:"not null;default:0" json:"active_lot_count"`                 // 在售批次数（汇总统计，尽力维护）
	TotalRevenue   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"` // 累计销售额（汇总统计，尽力维护）
	IsActive       bool           `gorm:"default:true;index" json:"is_active"`                        // 是否上架
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Farm *Farm        `gorm:"foreignKey:FarmID" json:"farm,omitempty"`    // 关联农场
	Lots []ProductLot `gorm:"foreignKey:ProductID" json:"lots,omitempty"` // 关联批次
}

// TableName 指定表名
func (PreorderProduct) TableName() string {
	return "preorder_products"
}
