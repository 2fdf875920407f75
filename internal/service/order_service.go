package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单查询、发货、收货与评价
type OrderService struct {
	db         *gorm.DB
	orderRepo  repository.OrderRepository
	dispatcher *EventDispatcher
}

// NewOrderService 创建订单服务
func NewOrderService(db *gorm.DB, orderRepo repository.OrderRepository, dispatcher *EventDispatcher) *OrderService {
	return &OrderService{
		db:         db,
		orderRepo:  orderRepo,
		dispatcher: dispatcher,
	}
}

// ReviewInput 单个订单项的评价
type ReviewInput struct {
	OrderItemID uint   `json:"id"`
	Rating      int    `json:"rating"`
	Review      string `json:"review"`
}

// GetByUser 按订单号获取用户订单详情
func (s *OrderService) GetByUser(orderNo string, userID uint) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNoAndUser(orderNo, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListByUser 获取用户订单列表
func (s *OrderService) ListByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrOrderNotFound
	}
	return s.orderRepo.ListByUser(filter)
}

// ListForAdmin 管理端订单列表
func (s *OrderService) ListForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListForAdmin(filter)
}

// GetForAdmin 管理端获取订单详情
func (s *OrderService) GetForAdmin(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Ship 管理端发货，仅已支付且未发货的订单
func (s *OrderService) Ship(ctx context.Context, orderNo string, shipData map[string]interface{}) (*models.Order, error) {
	if len(shipData) == 0 {
		return nil, fmt.Errorf("%w: ship data is required", ErrInvalidRequest)
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if !locked.IsPaid() {
			return ErrOrderNotPaid
		}
		if locked.ShipStatus != constants.ShipStatusPending {
			return ErrShipStatusInvalid
		}
		locked.ShipStatus = constants.ShipStatusDelivered
		locked.ShipData = models.JSON(shipData)
		order = locked
		return orderRepo.Updates(locked.ID, map[string]interface{}{
			"ship_status": constants.ShipStatusDelivered,
			"ship_data":   locked.ShipData,
			"updated_at":  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_shipped", "order_no", orderNo)
	return order, nil
}

// Received 用户确认收货
func (s *OrderService) Received(ctx context.Context, orderNo string, userID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if locked == nil || locked.UserID != userID {
			return ErrOrderNotFound
		}
		if !isShipTransitionAllowed(locked.ShipStatus, constants.ShipStatusReceived) {
			return ErrShipStatusInvalid
		}
		locked.ShipStatus = constants.ShipStatusReceived
		order = locked
		return orderRepo.Updates(locked.ID, map[string]interface{}{
			"ship_status": constants.ShipStatusReceived,
			"updated_at":  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// SendReview 已支付订单逐项评价，一笔订单只能评价一次
func (s *OrderService) SendReview(ctx context.Context, orderNo string, userID uint, reviews []ReviewInput) (*models.Order, error) {
	if len(reviews) == 0 {
		return nil, ErrReviewInvalid
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if locked == nil || locked.UserID != userID {
			return ErrOrderNotFound
		}
		if !locked.IsPaid() {
			return ErrOrderNotPaid
		}
		if locked.Reviewed {
			return ErrOrderReviewed
		}
		items := make(map[uint]*models.OrderItem, len(locked.Items))
		for i := range locked.Items {
			items[locked.Items[i].ID] = &locked.Items[i]
		}
		now := time.Now()
		for _, review := range reviews {
			item, ok := items[review.OrderItemID]
			if !ok {
				return ErrOrderItemInvalid
			}
			if review.Rating < 1 || review.Rating > 5 {
				return ErrReviewInvalid
			}
			rating := review.Rating
			item.Rating = &rating
			item.Review = strings.TrimSpace(review.Review)
			item.ReviewedAt = &now
			if err := orderRepo.UpdateItem(item.ID, map[string]interface{}{
				"rating":      rating,
				"review":      item.Review,
				"reviewed_at": now,
				"updated_at":  now,
			}); err != nil {
				return err
			}
		}
		locked.Reviewed = true
		order = locked
		return orderRepo.Updates(locked.ID, map[string]interface{}{
			"reviewed":   true,
			"updated_at": now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, events.OrderReviewed(order))
	return order, nil
}
