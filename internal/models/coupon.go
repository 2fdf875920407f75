package models

import "time"

// CouponCode 优惠码
type CouponCode struct {
	ID        uint       `gorm:"primarykey" json:"id"`                                    // 主键
	Name      string     `gorm:"type:varchar(128)" json:"name"`                           // 名称
	Code      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`       // 优惠码
	Type      string     `gorm:"type:varchar(20);not null" json:"type"`                   // 类型（fixed/percent）
	Value     Money      `gorm:"type:decimal(20,2);not null" json:"value"`                // 数值（固定金额或百分比）
	MinAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount"` // 使用门槛
	Total     int        `gorm:"not null;default:0" json:"total"`                         // 可兑换总量
	Used      int        `gorm:"not null;default:0" json:"used"`                          // 已兑换数量
	NotBefore *time.Time `json:"not_before"`                                              // 生效时间
	NotAfter  *time.Time `json:"not_after"`                                               // 失效时间
	Enabled   bool       `gorm:"not null;default:true" json:"enabled"`                    // 是否启用
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt time.Time  `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (CouponCode) TableName() string {
	return "coupon_codes"
}
