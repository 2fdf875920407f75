package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusClosed         = "closed"
)

// 订单类型常量
const (
	OrderTypeNormal       = "normal"
	OrderTypeCrowdfunding = "crowdfunding"
	OrderTypeSeckill      = "seckill"
)

// 物流状态常量
const (
	ShipStatusPending   = "pending"
	ShipStatusDelivered = "delivered"
	ShipStatusReceived  = "received"
)

// 退款状态常量
const (
	RefundStatusPending    = "pending"
	RefundStatusApplied    = "applied"
	RefundStatusProcessing = "processing"
	RefundStatusSuccess    = "success"
	RefundStatusFailed     = "failed"
)

// 分期状态常量
const (
	InstallmentStatusPending  = "pending"
	InstallmentStatusRepaying = "repaying"
	InstallmentStatusFinished = "finished"
)

// 众筹状态常量
const (
	CrowdfundingStatusFunding = "funding"
	CrowdfundingStatusSuccess = "success"
	CrowdfundingStatusFail    = "fail"
)

// 支付方式常量
const (
	PaymentMethodAlipay      = "alipay"
	PaymentMethodWechat      = "wechat"
	PaymentMethodInstallment = "installment"
)

// 支付状态常量（网关回调归一化后）
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// 支付交互方式常量
const (
	PaymentInteractionQR   = "qr"
	PaymentInteractionWAP  = "wap"
	PaymentInteractionPage = "page"
)

// 优惠券类型常量
const (
	CouponTypeFixed   = "fixed"
	CouponTypePercent = "percent"
)

// 商品类型常量
const (
	ProductTypeNormal       = OrderTypeNormal
	ProductTypeCrowdfunding = OrderTypeCrowdfunding
	ProductTypeSeckill      = OrderTypeSeckill
)

// 支付宝回调响应
const (
	AlipayCallbackSuccess = "success"
	AlipayCallbackFail    = "fail"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskOrderClose         = "order:close"
	TaskCrowdfundingRefund = "crowdfunding:refund"
	TaskEventPublish       = "event:publish"
)

// 事件名称
const (
	EventOrderPaid     = "order.paid"
	EventOrderReviewed = "order.reviewed"
)

// PaymentReferenceSeparator 分期还款支付单号分隔符
const PaymentReferenceSeparator = "_"
