package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	CreateItem(item *models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByOrderNoForUpdate(orderNo string) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByRefundNoForUpdate(refundNo string) (*models.Order, error)
	GetByOrderNoAndUser(orderNo string, userID uint) (*models.Order, error)
	ExistsOrderNo(orderNo string) (bool, error)
	ExistsRefundNo(refundNo string) (bool, error)
	CountActiveByCoupon(couponID, userID uint) (int64, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListForAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListPaidCrowdfunding(filter CrowdfundingOrderFilter) ([]models.Order, error)
	Updates(id uint, updates map[string]interface{}) error
	UpdateItem(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单头
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// CreateItem 创建订单项
func (r *GormOrderRepository) CreateItem(item *models.OrderItem) error {
	return r.db.Create(item).Error
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return r.first(r.db.Where("order_no = ?", orderNo))
}

// GetByOrderNoForUpdate 加行锁读取订单
func (r *GormOrderRepository) GetByOrderNoForUpdate(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_no = ?", orderNo))
}

// GetByIDForUpdate 加行锁按 ID 读取订单
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetByRefundNoForUpdate 按退款单号加锁读取订单
func (r *GormOrderRepository) GetByRefundNoForUpdate(refundNo string) (*models.Order, error) {
	refundNo = strings.TrimSpace(refundNo)
	if refundNo == "" {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("refund_no = ?", refundNo))
}

// GetByOrderNoAndUser 获取用户订单详情
func (r *GormOrderRepository) GetByOrderNoAndUser(orderNo string, userID uint) (*models.Order, error) {
	return r.first(r.db.Where("order_no = ? AND user_id = ?", strings.TrimSpace(orderNo), userID))
}

// ExistsOrderNo 订单号是否已占用
func (r *GormOrderRepository) ExistsOrderNo(orderNo string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).Where("order_no = ?", orderNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsRefundNo 退款单号是否已占用
func (r *GormOrderRepository) ExistsRefundNo(refundNo string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).Where("refund_no = ?", refundNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountActiveByCoupon 统计用户使用该优惠券且仍有效（已支付或未关闭）的订单数
func (r *GormOrderRepository) CountActiveByCoupon(couponID, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Where("(paid_at IS NOT NULL OR status <> ?)", constants.OrderStatusClosed).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListByUser 用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	return r.list(r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID), filter)
}

// ListForAdmin 管理端订单列表，支持按订单号与物流信息检索
func (r *GormOrderRepository) ListForAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordCondition(r.db, []string{"order_no"}, "ship_data", shipDataSearchKeys)
		query = query.Where("("+condition+")", repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	return r.list(query, filter)
}

func (r *GormOrderRepository) list(query *gorm.DB, filter OrderListFilter) ([]models.Order, int64, error) {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListPaidCrowdfunding 按批次列出包含指定商品的已支付众筹订单
func (r *GormOrderRepository) ListPaidCrowdfunding(filter CrowdfundingOrderFilter) ([]models.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var orders []models.Order
	sub := r.db.Model(&models.OrderItem{}).Select("order_id").Where("product_id = ?", filter.ProductID)
	err := r.db.Model(&models.Order{}).
		Where("type = ? AND paid_at IS NOT NULL AND id > ?", constants.OrderTypeCrowdfunding, filter.AfterID).
		Where("id IN (?)", sub).
		Order("id asc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Updates 更新订单字段
func (r *GormOrderRepository) Updates(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateItem 更新订单项字段
func (r *GormOrderRepository) UpdateItem(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.OrderItem{}).Where("id = ?", id).Updates(updates).Error
}
