package models

import "time"

// Installment 分期付款计划，挂在一笔订单之上
type Installment struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                             // 主键
	No           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"no"`                  // 分期流水号
	UserID       uint      `gorm:"index;not null" json:"user_id"`                                    // 用户ID
	OrderID      uint      `gorm:"uniqueIndex;not null" json:"order_id"`                             // 订单ID
	TotalAmount  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`        // 本金总额
	Count        int       `gorm:"not null" json:"count"`                                            // 期数
	FeeRate      Money     `gorm:"type:decimal(10,2);not null;default:0" json:"fee_rate"`            // 手续费率（百分比）
	Status       string    `gorm:"type:varchar(20);index;not null" json:"status"`                    // 状态（pending/repaying/finished）
	RefundStatus string    `gorm:"type:varchar(20);not null;default:'pending'" json:"refund_status"` // 退款汇总状态
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt    time.Time `json:"updated_at"`                                                       // 更新时间

	Order *Order            `gorm:"foreignKey:OrderID" json:"order,omitempty"`       // 关联订单
	Items []InstallmentItem `gorm:"foreignKey:InstallmentID" json:"items,omitempty"` // 还款计划
}

// TableName 指定表名
func (Installment) TableName() string {
	return "installments"
}

// InstallmentItem 分期还款计划项
type InstallmentItem struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                             // 主键
	InstallmentID uint       `gorm:"not null;uniqueIndex:idx_installment_seq" json:"installment_id"`   // 分期ID
	Sequence      int        `gorm:"not null;uniqueIndex:idx_installment_seq" json:"sequence"`         // 期序号（从 0 开始）
	Base          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"base"`                // 本金
	Fee           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"fee"`                 // 手续费
	DueDate       time.Time  `json:"due_date"`                                                         // 还款截止日
	PaidAt        *time.Time `gorm:"index" json:"paid_at"`                                             // 还款时间
	PaymentMethod string     `gorm:"type:varchar(32)" json:"payment_method"`                           // 支付方式
	PaymentNo     string     `gorm:"type:varchar(128)" json:"payment_no"`                              // 支付平台流水号
	RefundStatus  string     `gorm:"type:varchar(20);not null;default:'pending'" json:"refund_status"` // 退款状态
	CreatedAt     time.Time  `json:"created_at"`                                                       // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                       // 更新时间
}

// TableName 指定表名
func (InstallmentItem) TableName() string {
	return "installment_items"
}

// Total 本期应还金额
func (i InstallmentItem) Total() Money {
	return i.Base.Add(i.Fee)
}

// IsPaid 是否已还款
func (i *InstallmentItem) IsPaid() bool {
	return i != nil && i.PaidAt != nil
}
