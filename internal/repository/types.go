package repository

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
	Type     string
	OrderNo  string
	Keyword  string // 管理端：订单号或物流单号、物流公司模糊匹配
}

// CrowdfundingOrderFilter 众筹结算时筛选已支付订单
type CrowdfundingOrderFilter struct {
	ProductID uint
	AfterID   uint
	Limit     int
}
