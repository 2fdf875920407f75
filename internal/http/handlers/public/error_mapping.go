package public

import (
	"github.com/dujiao-next/mall/internal/http/handlers/shared"
	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/service"
)

var orderCreateErrorRules = []shared.ErrorRule{
	{Target: service.ErrInsufficientStock, Code: response.CodeConflict, Message: "库存不足"},
	{Target: service.ErrCouponExhausted, Code: response.CodeConflict, Message: "优惠券已领完"},
	{Target: service.ErrCouponNotFound, Code: response.CodeBadRequest, Message: "优惠券不存在"},
	{Target: service.ErrCouponDisabled, Code: response.CodeBadRequest, Message: "优惠券已停用"},
	{Target: service.ErrCouponSoldOut, Code: response.CodeBadRequest, Message: "优惠券已领完"},
	{Target: service.ErrCouponNotStarted, Code: response.CodeBadRequest, Message: "优惠券未到使用时间"},
	{Target: service.ErrCouponExpired, Code: response.CodeBadRequest, Message: "优惠券已过期"},
	{Target: service.ErrCouponMinAmount, Code: response.CodeBadRequest, Message: "未达到优惠券使用门槛"},
	{Target: service.ErrCouponUsed, Code: response.CodeBadRequest, Message: "优惠券已使用"},
	{Target: service.ErrCouponUnavailable, Code: response.CodeBadRequest, Message: "优惠券不可用"},
	{Target: service.ErrAddressNotFound, Code: response.CodeBadRequest, Message: "收货地址不存在"},
	{Target: service.ErrProductUnavailable, Code: response.CodeBadRequest, Message: "商品不可购买"},
	{Target: service.ErrSeckillNotOpen, Code: response.CodeBadRequest, Message: "秒杀未开始或已结束"},
	{Target: service.ErrCrowdfundingEnded, Code: response.CodeBadRequest, Message: "众筹已结束"},
	{Target: service.ErrInvalidRequest, Code: response.CodeBadRequest, Message: "请求参数错误"},
}

var orderStateErrorRules = []shared.ErrorRule{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Message: "订单不存在"},
	{Target: service.ErrInstallmentNotFound, Code: response.CodeNotFound, Message: "分期不存在"},
	{Target: service.ErrOrderClosed, Code: response.CodeBadRequest, Message: "订单已关闭"},
	{Target: service.ErrOrderAlreadyPaid, Code: response.CodeBadRequest, Message: "订单已支付"},
	{Target: service.ErrAlreadySettled, Code: response.CodeBadRequest, Message: "分期已结清"},
	{Target: service.ErrOrderNotPaid, Code: response.CodeBadRequest, Message: "订单未支付"},
	{Target: service.ErrShipStatusInvalid, Code: response.CodeBadRequest, Message: "物流状态不正确"},
	{Target: service.ErrOrderReviewed, Code: response.CodeBadRequest, Message: "订单已评价"},
	{Target: service.ErrOrderItemInvalid, Code: response.CodeBadRequest, Message: "订单商品不存在"},
	{Target: service.ErrReviewInvalid, Code: response.CodeBadRequest, Message: "评价内容不正确"},
	{Target: service.ErrRefundStatusInvalid, Code: response.CodeBadRequest, Message: "退款状态不正确"},
	{Target: service.ErrInstallmentExists, Code: response.CodeBadRequest, Message: "订单已创建分期"},
	{Target: service.ErrInstallmentCountInvalid, Code: response.CodeBadRequest, Message: "不支持的分期期数"},
	{Target: service.ErrInstallmentAmountTooLow, Code: response.CodeBadRequest, Message: "订单金额未达到分期门槛"},
	{Target: service.ErrInstallmentNotAllowed, Code: response.CodeBadRequest, Message: "该订单不支持分期"},
	{Target: service.ErrCrowdfundingEnded, Code: response.CodeBadRequest, Message: "众筹已结束"},
	{Target: service.ErrPaymentMethodUnsupported, Code: response.CodeBadRequest, Message: "不支持的支付方式"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeBadRequest, Message: "订单状态不正确"},
	{Target: service.ErrInvalidRequest, Code: response.CodeBadRequest, Message: "请求参数错误"},
}

var paymentGatewayErrorRules = []shared.ErrorRule{
	{Target: payment.ErrGatewayUnavailable, Code: response.CodeUnavailable, Message: "支付通道繁忙，请稍后重试"},
}
