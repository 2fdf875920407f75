package models

import "time"

// OrderItem 订单项表（单价为下单时快照，不随商品调价变化）
type OrderItem struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID    uint       `gorm:"index;not null" json:"order_id"`                          // 订单ID
	ProductID  uint       `gorm:"index;not null" json:"product_id"`                        // 商品ID
	SKUID      uint       `gorm:"column:sku_id;index;not null" json:"sku_id"`              // SKU ID
	Amount     int        `gorm:"not null" json:"amount"`                                  // 购买数量
	Price      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"price"`      // 下单时单价
	Rating     *int       `json:"rating"`                                                  // 评分
	Review     string     `gorm:"type:text" json:"review"`                                 // 评价内容
	ReviewedAt *time.Time `json:"reviewed_at"`                                             // 评价时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal 小计
func (i OrderItem) Subtotal() Money {
	return i.Price.MulInt(i.Amount)
}
