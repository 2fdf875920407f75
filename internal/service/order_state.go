package service

import (
	"github.com/dujiao-next/mall/internal/constants"
)

// allowedTransitions 订单状态流转表；paid 与 closed 之间没有边
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPendingPayment: {
		constants.OrderStatusPaid:   true,
		constants.OrderStatusClosed: true,
	},
}

func isTransitionAllowed(current, target string) bool {
	if current == target {
		return true
	}
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// installmentStatusRank 分期状态只能前进
var installmentStatusRank = map[string]int{
	constants.InstallmentStatusPending:  0,
	constants.InstallmentStatusRepaying: 1,
	constants.InstallmentStatusFinished: 2,
}

func isInstallmentForward(current, target string) bool {
	from, ok := installmentStatusRank[current]
	if !ok {
		return false
	}
	to, ok := installmentStatusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// shipTransitions 物流状态流转
var shipTransitions = map[string]string{
	constants.ShipStatusPending:   constants.ShipStatusDelivered,
	constants.ShipStatusDelivered: constants.ShipStatusReceived,
}

func isShipTransitionAllowed(current, target string) bool {
	return shipTransitions[current] == target
}

// aggregateRefundStatus 汇总分期各期退款状态
func aggregateRefundStatus(statuses []string) string {
	if len(statuses) == 0 {
		return constants.RefundStatusPending
	}
	allSuccess := true
	for _, status := range statuses {
		if status == constants.RefundStatusFailed {
			return constants.RefundStatusFailed
		}
		if status != constants.RefundStatusSuccess {
			allSuccess = false
		}
	}
	if allSuccess {
		return constants.RefundStatusSuccess
	}
	return constants.RefundStatusProcessing
}
