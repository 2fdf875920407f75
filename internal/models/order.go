package models

import (
	"time"

	"github.com/dujiao-next/mall/internal/constants"
)

// Order 订单表（财务记录，只追加不删除）
type Order struct {
	ID            uint            `gorm:"primarykey" json:"id"`                                           // 主键
	OrderNo       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`          // 订单编号
	UserID        uint            `gorm:"index;not null" json:"user_id"`                                  // 用户ID
	Type          string          `gorm:"type:varchar(20);index;not null" json:"type"`                    // 订单类型（normal/crowdfunding/seckill）
	Status        string          `gorm:"type:varchar(32);index;not null" json:"status"`                  // 订单状态
	Address       AddressSnapshot `gorm:"type:json" json:"address"`                                       // 收货地址快照
	Remark        string          `gorm:"type:text" json:"remark"`                                        // 备注
	TotalAmount   Money           `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`      // 订单金额
	CouponID      *uint           `gorm:"index" json:"coupon_id,omitempty"`                               // 优惠券ID
	PaidAt        *time.Time      `gorm:"index" json:"paid_at"`                                           // 支付时间
	PaymentMethod string          `gorm:"type:varchar(32)" json:"payment_method"`                         // 支付方式
	PaymentNo     string          `gorm:"type:varchar(128)" json:"payment_no"`                            // 支付平台流水号
	ClosedAt      *time.Time      `gorm:"index" json:"closed_at"`                                         // 关闭时间
	RefundStatus  string          `gorm:"type:varchar(20);not null;default:'pending'" json:"refund_status"` // 退款状态
	RefundNo      *string         `gorm:"type:varchar(64);uniqueIndex" json:"refund_no"`                  // 退款单号
	ShipStatus    string          `gorm:"type:varchar(20);not null;default:'pending'" json:"ship_status"` // 物流状态
	ShipData      JSON            `gorm:"type:json" json:"ship_data"`                                     // 物流信息
	Reviewed      bool            `gorm:"not null;default:false" json:"reviewed"`                         // 是否已评价
	Extra         JSON            `gorm:"type:json" json:"extra"`                                         // 额外数据（退款原因、失败码）
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt     time.Time       `json:"updated_at"`                                                     // 更新时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsPaid 是否已支付
func (o *Order) IsPaid() bool {
	return o != nil && o.PaidAt != nil
}

// IsClosed 是否已关闭
func (o *Order) IsClosed() bool {
	return o != nil && o.Status == constants.OrderStatusClosed
}

// RefundNoValue 返回退款单号（未生成时为空串）
func (o *Order) RefundNoValue() string {
	if o == nil || o.RefundNo == nil {
		return ""
	}
	return *o.RefundNo
}
