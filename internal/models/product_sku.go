package models

import "time"

// ProductSKU 商品 SKU 表，库存扣减的最小单位
type ProductSKU struct {
	ID        uint      `gorm:"primarykey" json:"id"`                               // 主键
	ProductID uint      `gorm:"not null;index" json:"product_id"`                   // 商品ID
	Title     string    `gorm:"type:varchar(255)" json:"title"`                     // SKU 标题
	Price     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 单价
	Stock     int       `gorm:"not null;default:0" json:"stock"`                    // 可售库存
	CreatedAt time.Time `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                         // 更新时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (ProductSKU) TableName() string {
	return "product_skus"
}
