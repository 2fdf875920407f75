package service

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest 用户侧前置条件不满足，不产生任何状态变更
var ErrInvalidRequest = errors.New("invalid request")

var (
	ErrOrderClosed              = fmt.Errorf("%w: order closed", ErrInvalidRequest)
	ErrAlreadySettled           = fmt.Errorf("%w: installment already settled", ErrInvalidRequest)
	ErrShipStatusInvalid        = fmt.Errorf("%w: ship status invalid", ErrInvalidRequest)
	ErrOrderNotPaid             = fmt.Errorf("%w: order not paid", ErrInvalidRequest)
	ErrOrderAlreadyPaid         = fmt.Errorf("%w: order already paid", ErrInvalidRequest)
	ErrOrderReviewed            = fmt.Errorf("%w: order already reviewed", ErrInvalidRequest)
	ErrRefundStatusInvalid      = fmt.Errorf("%w: refund status invalid", ErrInvalidRequest)
	ErrOrderStatusInvalid       = fmt.Errorf("%w: order status transition not allowed", ErrInvalidRequest)
	ErrOrderItemInvalid         = fmt.Errorf("%w: order item invalid", ErrInvalidRequest)
	ErrReviewInvalid            = fmt.Errorf("%w: review invalid", ErrInvalidRequest)
	ErrAddressNotFound          = fmt.Errorf("%w: address not found", ErrInvalidRequest)
	ErrProductUnavailable       = fmt.Errorf("%w: product unavailable", ErrInvalidRequest)
	ErrSeckillNotOpen           = fmt.Errorf("%w: seckill window closed", ErrInvalidRequest)
	ErrCrowdfundingEnded        = fmt.Errorf("%w: crowdfunding ended", ErrInvalidRequest)
	ErrCrowdfundingNotFailed    = fmt.Errorf("%w: crowdfunding not failed", ErrInvalidRequest)
	ErrCrowdfundingNotEnded     = fmt.Errorf("%w: crowdfunding not ended", ErrInvalidRequest)
	ErrInstallmentExists        = fmt.Errorf("%w: installment already exists", ErrInvalidRequest)
	ErrInstallmentCountInvalid  = fmt.Errorf("%w: installment count invalid", ErrInvalidRequest)
	ErrInstallmentAmountTooLow  = fmt.Errorf("%w: order amount below installment minimum", ErrInvalidRequest)
	ErrInstallmentNotAllowed    = fmt.Errorf("%w: order type does not support installment", ErrInvalidRequest)
	ErrPaymentMethodUnsupported = fmt.Errorf("%w: payment method unsupported", ErrInvalidRequest)
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCouponExhausted   = errors.New("coupon exhausted")
)

// ErrCouponUnavailable 优惠码不可用（各细分原因均可用 errors.Is 归到此类）
var ErrCouponUnavailable = errors.New("coupon unavailable")

var (
	ErrCouponNotFound   = fmt.Errorf("%w: not found", ErrCouponUnavailable)
	ErrCouponDisabled   = fmt.Errorf("%w: disabled", ErrCouponUnavailable)
	ErrCouponSoldOut    = fmt.Errorf("%w: sold out", ErrCouponUnavailable)
	ErrCouponNotStarted = fmt.Errorf("%w: not started", ErrCouponUnavailable)
	ErrCouponExpired    = fmt.Errorf("%w: expired", ErrCouponUnavailable)
	ErrCouponMinAmount  = fmt.Errorf("%w: order amount below minimum", ErrCouponUnavailable)
	ErrCouponUsed       = fmt.Errorf("%w: already used", ErrCouponUnavailable)
)

var (
	ErrUnresolvedReference   = errors.New("unresolved payment reference")
	ErrInternalInconsistency = errors.New("internal inconsistency")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInstallmentNotFound   = errors.New("installment not found")
	ErrCampaignNotFound      = errors.New("crowdfunding campaign not found")
)
