package models

import "time"

// CartItem 购物车项
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                      // 主键
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_sku" json:"user_id"`     // 用户ID
	SKUID     uint      `gorm:"column:sku_id;not null;uniqueIndex:idx_cart_user_sku" json:"sku_id"` // SKU ID
	Amount    int       `gorm:"not null" json:"amount"`                                    // 数量
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
