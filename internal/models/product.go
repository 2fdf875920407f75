package models

import "time"

// Product 商品（仅保留下单链路读取的字段）
type Product struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                     // 主键
	Type      string    `gorm:"type:varchar(20);index;not null;default:'normal'" json:"type"` // 商品类型（normal/crowdfunding/seckill）
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`                  // 标题
	OnSale    bool      `gorm:"not null;default:true;index" json:"on_sale"`               // 是否上架
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                               // 更新时间

	SKUs []ProductSKU `gorm:"foreignKey:ProductID" json:"skus,omitempty"` // SKU 列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
