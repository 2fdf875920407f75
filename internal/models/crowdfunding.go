package models

import "time"

// CrowdfundingCampaign 众筹活动
type CrowdfundingCampaign struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                              // 主键
	ProductID    uint      `gorm:"uniqueIndex;not null" json:"product_id"`                            // 商品ID
	TargetAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"target_amount"`        // 目标金额
	TotalAmount  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`         // 已筹金额
	UserCount    int       `gorm:"not null;default:0" json:"user_count"`                              // 参与人数
	EndAt        time.Time `gorm:"index" json:"end_at"`                                               // 结束时间
	Status       string    `gorm:"type:varchar(20);index;not null;default:'funding'" json:"status"`  // 状态（funding/success/fail）
	CreatedAt    time.Time `json:"created_at"`                                                        // 创建时间
	UpdatedAt    time.Time `json:"updated_at"`                                                        // 更新时间
}

// TableName 指定表名
func (CrowdfundingCampaign) TableName() string {
	return "crowdfunding_campaigns"
}

// SeckillWindow 秒杀时间窗口
type SeckillWindow struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	ProductID uint      `gorm:"uniqueIndex;not null" json:"product_id"` // 商品ID
	StartAt   time.Time `json:"start_at"`                               // 开始时间
	EndAt     time.Time `json:"end_at"`                                 // 结束时间
	CreatedAt time.Time `json:"created_at"`                             // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                             // 更新时间
}

// TableName 指定表名
func (SeckillWindow) TableName() string {
	return "seckill_windows"
}

// IsOpen 当前是否处于秒杀时间内
func (w *SeckillWindow) IsOpen(now time.Time) bool {
	return w != nil && !now.Before(w.StartAt) && now.Before(w.EndAt)
}
