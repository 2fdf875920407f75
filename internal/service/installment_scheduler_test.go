package service

import (
	"context"
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallmentItems(t *testing.T) {
	now := time.Date(2026, 1, 31, 15, 4, 5, 0, time.UTC)
	items := buildInstallmentItems(models.MustMoney("100.00"), 3, decimal.RequireFromString("1.5"), now)
	require.Len(t, items, 3)

	require.Equal(t, "33.33", items[0].Base.String())
	require.Equal(t, "33.33", items[1].Base.String())
	require.Equal(t, "33.34", items[2].Base.String())
	require.Equal(t, "0.50", items[0].Fee.String())

	sum := models.Money{}
	for i, item := range items {
		require.Equal(t, i, item.Sequence)
		require.Equal(t, constants.RefundStatusPending, item.RefundStatus)
		sum = sum.Add(item.Base)
	}
	require.Equal(t, "100.00", sum.String())

	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), items[0].DueDate)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), items[1].DueDate)
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), items[2].DueDate)
}

func TestParseFeeRates(t *testing.T) {
	rates, err := ParseFeeRates(map[string]float64{"3": 1.5, "12": 0.5})
	require.NoError(t, err)
	require.True(t, rates[3].Equal(decimal.RequireFromString("1.5")))
	require.True(t, rates[12].Equal(decimal.RequireFromString("0.5")))

	_, err = ParseFeeRates(map[string]float64{"three": 1})
	require.Error(t, err)
	_, err = ParseFeeRates(map[string]float64{"3": -1})
	require.Error(t, err)
}

func TestCreatePlanValidation(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()

	small, _ := placeOrder(t, env, 1, "50.00", 1)
	_, err := env.installments.CreatePlan(ctx, small.OrderNo, 1, 3)
	require.ErrorIs(t, err, ErrInstallmentAmountTooLow)

	order, _ := placeOrder(t, env, 1, "200.00", 1)
	_, err = env.installments.CreatePlan(ctx, order.OrderNo, 1, 5)
	require.ErrorIs(t, err, ErrInstallmentCountInvalid)
	_, err = env.installments.CreatePlan(ctx, order.OrderNo, 2, 3)
	require.ErrorIs(t, err, ErrOrderNotFound)

	plan, err := env.installments.CreatePlan(ctx, order.OrderNo, 1, 6)
	require.NoError(t, err)
	require.Equal(t, constants.InstallmentStatusPending, plan.Status)
	require.Equal(t, "200.00", plan.TotalAmount.String())
	require.Equal(t, "I", plan.No[:1])

	stored, err := env.installments.Get(plan.No, 1)
	require.NoError(t, err)
	require.Len(t, stored.Items, 6)
	_, err = env.installments.Get(plan.No, 2)
	require.ErrorIs(t, err, ErrInstallmentNotFound)

	_, err = env.installments.CreatePlan(ctx, order.OrderNo, 1, 3)
	require.ErrorIs(t, err, ErrInstallmentExists)

	paid, _ := placeOrder(t, env, 1, "200.00", 1)
	payOrder(t, env, paid.OrderNo, constants.PaymentMethodAlipay)
	_, err = env.installments.CreatePlan(ctx, paid.OrderNo, 1, 3)
	require.ErrorIs(t, err, ErrOrderAlreadyPaid)
}

func TestInstallmentInitiatePaymentUsesNextStep(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	order, _ := placeOrder(t, env, 1, "300.00", 1)
	plan, err := env.installments.CreatePlan(ctx, order.OrderNo, 1, 3)
	require.NoError(t, err)

	input := InstallmentPayInput{No: plan.No, UserID: 1, Method: "wechat", ClientIP: "10.0.0.2"}
	result, err := env.installments.InitiatePayment(ctx, input)
	require.NoError(t, err)
	require.Equal(t, payment.TargetRedirect, result.TargetType)
	require.Equal(t, StepReference(plan.No, 0), env.wechat.initiated[0].Reference)
	require.Equal(t, "101.50", env.wechat.initiated[0].Amount)
	require.Equal(t, "https://mall.example.com/api/v1/installments/wechat/notify", env.wechat.initiated[0].NotifyURL)

	payOrder(t, env, StepReference(plan.No, 0), constants.PaymentMethodWechat)
	_, err = env.installments.InitiatePayment(ctx, input)
	require.NoError(t, err)
	require.Equal(t, StepReference(plan.No, 1), env.wechat.initiated[1].Reference)

	payOrder(t, env, StepReference(plan.No, 1), constants.PaymentMethodWechat)
	payOrder(t, env, StepReference(plan.No, 2), constants.PaymentMethodWechat)
	_, err = env.installments.InitiatePayment(ctx, input)
	require.ErrorIs(t, err, ErrAlreadySettled)

	input.Method = "paypal"
	_, err = env.installments.InitiatePayment(ctx, input)
	require.ErrorIs(t, err, ErrAlreadySettled)
}
