package models

import (
	"time"

	"gorm.io/gorm"
)

// ProductLot 预售批次表（有限产能库存单元）
// 不变量：available_quantity + sold_quantity == total_yield，且 available_quantity 永不为负。
type ProductLot struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                        // 主键
	ProductID         uint           `gorm:"not null;index" json:"preorder_product_id"`                   // 预售商品ID
	LotCode           string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"lot_code"`       // 批次编号
	TotalYield        int            `gorm:"not null;default:0" json:"total_yield"`                       // 总产量（固定容量，仅补货时增加）
	AvailableQuantity int            `gorm:"not null;default:0" json:"available_quantity"`                // 可售数量
	SoldQuantity      int            `gorm:"not null;default:0" json:"sold_quantity"`                     // 已售数量
	TotalRevenue      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"`  // 批次累计销售额
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`               // 批次状态
	HarvestAt         *time.Time     `gorm:"index" json:"harvest_at,omitempty"`                           // 预计采收时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	Product *PreorderProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (ProductLot) TableName() string {
	return "product_lots"
}
