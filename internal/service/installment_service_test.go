package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedUnpaidOrder(t *testing.T, env *testEnv, userID uint, total string) *models.Order {
	t.Helper()
	_, sku := env.seedProduct(t, constants.ProductTypeNormal, total, 10)
	expiresAt := env.now.Add(time.Hour)
	order := &models.Order{
		OrderNo:      fmt.Sprintf("U%d%d", time.Now().UnixNano(), userID),
		UserID:       userID,
		Type:         constants.OrderTypeNormal,
		Address:      models.JSON{},
		TotalAmount:  models.MustMoney(total),
		RefundStatus: constants.RefundStatusPending,
		ShipStatus:   constants.ShipStatusPending,
		Extra:        models.JSON{},
		ExpiresAt:    &expiresAt,
	}
	items := []models.OrderItem{{ProductID: sku.ProductID, ProductSKUID: sku.ID, Amount: 1, Price: sku.Price}}
	if err := env.orderRepo.Create(order, items); err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	return order
}

func TestInstallmentPlanSplitsPrincipalAndFee(t *testing.T) {
	env := newTestEnv(t)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")

	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)
	require.Len(t, installment.Items, 3)

	wantBase := []string{"99.66", "99.66", "99.68"}
	wantFee := []string{"1.49", "1.49", "1.51"}
	firstDue := nextMidnight(fixedNow)
	for i, item := range installment.Items {
		assert.Equal(t, i+1, item.Sequence)
		assert.Equal(t, wantBase[i], item.BaseAmount.String())
		assert.Equal(t, wantFee[i], item.Fee.String())
		assert.True(t, item.DueDate.Equal(firstDue.AddDate(0, 0, 30*i)), "due date of item %d", i+1)
	}
	assert.Equal(t, constants.InstallmentStatusPending, installment.Status)

	// 未开始还款的计划可被新计划覆盖
	replaced, err := svc.Create(context.Background(), 1, order.ID, 6)
	require.NoError(t, err)
	assert.Len(t, replaced.Items, 6)
	assert.NotEqual(t, installment.No, replaced.No)
}

func TestInstallmentCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")
	small := seedUnpaidOrder(t, env, 1, "99.99")

	_, err := svc.Create(context.Background(), 1, order.ID, 5)
	assert.ErrorIs(t, err, ErrInstallmentCountInvalid)
	_, err = svc.Create(context.Background(), 1, small.ID, 3)
	assert.ErrorIs(t, err, ErrInstallmentAmountTooLow)
	_, err = svc.Create(context.Background(), 2, order.ID, 3)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestInstallmentApplyPaymentTwice(t *testing.T) {
	env := newTestEnv(t)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)

	updated, err := svc.ApplyPayment(context.Background(), installment.ID, 1, constants.PaymentMethodAlipay, "A1")
	require.NoError(t, err)
	assert.Equal(t, constants.InstallmentStatusRepaying, updated.Status)
	paidOrder := env.reloadOrder(t, order.ID)
	assert.True(t, paidOrder.IsPaid())
	assert.Equal(t, constants.PaymentMethodInstallment, paidOrder.PaymentMethod)
	assert.Equal(t, installment.No, paidOrder.PaymentNo)
	assert.Equal(t, 1, env.notifier.count(constants.NotifyInstallmentPaid))

	_, err = svc.ApplyPayment(context.Background(), installment.ID, 1, constants.PaymentMethodAlipay, "A2")
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	again, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", again.Items[0].PaymentNo)

	for seq := 2; seq <= 3; seq++ {
		_, err := svc.ApplyPayment(context.Background(), installment.ID, seq, constants.PaymentMethodAlipay, fmt.Sprintf("A%d", seq+1))
		require.NoError(t, err)
	}
	finished, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.InstallmentStatusFinished, finished.Status)
}

func TestInstallmentApplyPaymentOnClosedOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)
	ok, err := env.orderRepo.CloseIfUnpaid(order.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.ApplyPayment(context.Background(), installment.ID, 1, constants.PaymentMethodAlipay, "A1")
	assert.ErrorIs(t, err, ErrOrderClosed)
	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Items[0].IsPaid(), "item payment must roll back")
}

func TestInstallmentAlipayRefundUsesBaseAmount(t *testing.T) {
	env := newTestEnv(t)
	gateway := &mockGateway{}
	env.gateways.Register(constants.PaymentMethodAlipay, gateway)
	orders := env.orderService(nil)
	svc := orders.installments
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), installment.ID, 1, constants.PaymentMethodAlipay, "A1")
	require.NoError(t, err)

	gateway.On("Refund", mock.Anything, mock.MatchedBy(func(req payment.RefundRequest) bool {
		return req.OutTradeNo == installment.No+"_1" &&
			req.Amount.Equal(decimal.RequireFromString("99.66")) &&
			req.TotalAmount.Equal(decimal.RequireFromString("101.15"))
	})).Return(&payment.RefundResult{}, nil).Once()

	require.NoError(t, orders.RefundOrder(context.Background(), order.ID, "测试退款"))

	gateway.AssertExpectations(t)
	refunded := env.reloadOrder(t, order.ID)
	assert.Equal(t, constants.RefundStatusSuccess, refunded.RefundStatus)
	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.InstallmentRefundSuccess, reloaded.Items[0].RefundStatus)
	assert.Equal(t, constants.InstallmentRefundPending, reloaded.Items[1].RefundStatus, "unpaid items are not refunded")
	assert.Equal(t, 1, env.notifier.count(constants.NotifyOrderRefunded))
}

func TestInstallmentRefundFailureKeepsProcessing(t *testing.T) {
	env := newTestEnv(t)
	gateway := &mockGateway{}
	env.gateways.Register(constants.PaymentMethodAlipay, gateway)
	orders := env.orderService(nil)
	svc := orders.installments
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), installment.ID, 1, constants.PaymentMethodAlipay, "A1")
	require.NoError(t, err)
	gateway.On("Refund", mock.Anything, mock.Anything).Return(&payment.RefundResult{FailureCode: "ACQ.TRADE_HAS_CLOSE"}, nil).Once()

	require.NoError(t, orders.RefundOrder(context.Background(), order.ID, ""))

	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.InstallmentRefundFailed, reloaded.Items[0].RefundStatus)
	assert.Equal(t, "ACQ.TRADE_HAS_CLOSE", reloaded.Items[0].RefundFailedCode)
	assert.Equal(t, constants.RefundStatusProcessing, env.reloadOrder(t, order.ID).RefundStatus)
}

// seedRefundingInstallment 建立两期均以微信还款、退款等待网关通知的分期订单
func seedRefundingInstallment(t *testing.T, env *testEnv) (*OrderService, *models.Order, *models.Installment) {
	t.Helper()
	gateway := &mockGateway{}
	env.gateways.Register(constants.PaymentMethodWechat, gateway)
	orders := env.orderService(nil)
	svc := orders.installments
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)
	for seq := 1; seq <= 2; seq++ {
		_, err := svc.ApplyPayment(context.Background(), installment.ID, seq, constants.PaymentMethodWechat, fmt.Sprintf("W%d", seq))
		require.NoError(t, err)
	}
	gateway.On("Refund", mock.Anything, mock.Anything).Return(&payment.RefundResult{Pending: true}, nil).Twice()

	require.NoError(t, orders.RefundOrder(context.Background(), order.ID, ""))
	gateway.AssertExpectations(t)
	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	require.Equal(t, constants.InstallmentRefundProcessing, reloaded.Items[0].RefundStatus)
	require.Equal(t, constants.InstallmentRefundProcessing, reloaded.Items[1].RefundStatus)
	require.Equal(t, constants.RefundStatusProcessing, env.reloadOrder(t, order.ID).RefundStatus)
	return orders, order, reloaded
}

func TestInstallmentItemRefundNotifySettlesOrder(t *testing.T) {
	env := newTestEnv(t)
	orders, order, installment := seedRefundingInstallment(t, env)
	svc := orders.installments
	ctx := context.Background()

	require.NoError(t, svc.ApplyItemRefundNotify(ctx, &payment.RefundCallbackResult{OrderRef: installment.No + "_1", Succeeded: true}))
	assert.Equal(t, constants.RefundStatusProcessing, env.reloadOrder(t, order.ID).RefundStatus, "second item still processing")
	// 重复通知为空操作
	require.NoError(t, svc.ApplyItemRefundNotify(ctx, &payment.RefundCallbackResult{OrderRef: installment.No + "_1", Succeeded: false, FailureCode: "LATE"}))

	require.NoError(t, svc.ApplyItemRefundNotify(ctx, &payment.RefundCallbackResult{OrderRef: installment.No + "_2", Succeeded: true}))
	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.InstallmentRefundSuccess, reloaded.Items[0].RefundStatus)
	assert.Equal(t, constants.InstallmentRefundSuccess, reloaded.Items[1].RefundStatus)
	assert.Equal(t, constants.InstallmentRefundPending, reloaded.Items[2].RefundStatus)
	assert.Equal(t, constants.RefundStatusSuccess, env.reloadOrder(t, order.ID).RefundStatus)
	assert.Equal(t, 1, env.notifier.count(constants.NotifyOrderRefunded))

	assert.ErrorIs(t, svc.ApplyItemRefundNotify(ctx, &payment.RefundCallbackResult{OrderRef: "bogus"}), ErrPaymentCallbackInvalid)
	assert.ErrorIs(t, svc.ApplyItemRefundNotify(ctx, &payment.RefundCallbackResult{OrderRef: installment.No + "_9"}), ErrInstallmentItemNotFound)
}

func TestInstallmentItemRefundNotifyFailure(t *testing.T) {
	env := newTestEnv(t)
	orders, order, installment := seedRefundingInstallment(t, env)
	svc := orders.installments

	require.NoError(t, svc.ApplyItemRefundNotify(context.Background(), &payment.RefundCallbackResult{
		OrderRef:    installment.No + "_2",
		FailureCode: "SYSTEMERROR",
	}))
	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.InstallmentRefundFailed, reloaded.Items[1].RefundStatus)
	assert.Equal(t, "SYSTEMERROR", reloaded.Items[1].RefundFailedCode)
	assert.Equal(t, constants.RefundStatusProcessing, env.reloadOrder(t, order.ID).RefundStatus)
}

func TestReconcileRefundingSettlesFinishedInstallments(t *testing.T) {
	env := newTestEnv(t)
	orders, order, installment := seedRefundingInstallment(t, env)
	svc := orders.installments
	ctx := context.Background()

	checked, err := svc.ReconcileRefunding(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, constants.RefundStatusProcessing, env.reloadOrder(t, order.ID).RefundStatus)

	// 网关通知丢失后由人工或查询补写子项结果
	for _, item := range installment.Items[:2] {
		require.NoError(t, env.instRepo.UpdateItemRefund(item.ID, constants.InstallmentRefundSuccess, ""))
	}
	checked, err = svc.ReconcileRefunding(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, constants.RefundStatusSuccess, env.reloadOrder(t, order.ID).RefundStatus)
	assert.Equal(t, 1, env.notifier.count(constants.NotifyOrderRefunded))

	checked, err = svc.ReconcileRefunding(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, checked)
}

func TestAccrueFinesIsCapped(t *testing.T) {
	env := newTestEnv(t)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), installment.ID, 1, constants.PaymentMethodAlipay, "A1")
	require.NoError(t, err)

	// 第二期逾期 10 天：ceil(101.15 × 0.05 × 10 / 100) = 0.51
	env.now = installment.Items[1].DueDate.Add(10*24*time.Hour + time.Hour)
	updated, err := svc.AccrueFines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	reloaded, err := svc.Get(1, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.51", models.NewMoneyFromDecimal(reloaded.Items[1].FineAmount()).String())

	// 重算而非累加：同一时刻再次执行不变
	updated, err = svc.AccrueFines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	// 逾期足够久后封顶为本金 + 手续费
	env.now = installment.Items[1].DueDate.AddDate(0, 0, 5000)
	_, err = svc.AccrueFines(context.Background())
	require.NoError(t, err)
	reloaded, err = svc.Get(1, installment.ID)
	require.NoError(t, err)
	for _, item := range reloaded.Items[1:] {
		assert.True(t, item.FineAmount().Equal(item.Principal()), "fine %s must equal principal %s", item.FineAmount(), item.Principal())
	}
	assert.True(t, reloaded.Items[0].FineAmount().IsZero(), "paid item accrues no fine")
}

func TestChargeItemOnlyNextUnpaid(t *testing.T) {
	env := newTestEnv(t)
	gateway := &mockGateway{}
	env.gateways.Register(constants.PaymentMethodAlipay, gateway)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)

	_, err = svc.ChargeItem(context.Background(), ChargeItemInput{UserID: 1, InstallmentID: installment.ID, ItemID: installment.Items[1].ID})
	assert.ErrorIs(t, err, ErrInstallmentItemNotNext)

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req payment.ChargeRequest) bool {
		return req.OutTradeNo == installment.No+"_1" && req.Amount.Equal(decimal.RequireFromString("101.15"))
	})).Return(&payment.ChargeResult{PayURL: "https://pay.example/1"}, nil).Once()
	result, err := svc.ChargeItem(context.Background(), ChargeItemInput{UserID: 1, InstallmentID: installment.ID, ItemID: installment.Items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/1", result.PayURL)
	gateway.AssertExpectations(t)
}

func TestChargeItemWithoutGateway(t *testing.T) {
	env := newTestEnv(t)
	svc := env.installmentService(nil)
	order := seedUnpaidOrder(t, env, 1, "299.00")
	installment, err := svc.Create(context.Background(), 1, order.ID, 3)
	require.NoError(t, err)

	_, err = svc.ChargeItem(context.Background(), ChargeItemInput{UserID: 1, InstallmentID: installment.ID, ItemID: installment.Items[0].ID})
	assert.True(t, errors.Is(err, ErrPaymentGatewayUnavailable), "got %v", err)
}

func TestParseItemRef(t *testing.T) {
	no, seq, ok := parseItemRef("20260310120000123456_2")
	assert.True(t, ok)
	assert.Equal(t, "20260310120000123456", no)
	assert.Equal(t, 2, seq)

	for _, ref := range []string{"", "abc", "_1", "abc_", "abc_0", "abc_x"} {
		_, _, ok := parseItemRef(ref)
		assert.False(t, ok, ref)
	}
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, overdueDays(due, due))
	assert.Equal(t, 0, overdueDays(due, due.Add(23*time.Hour)))
	assert.Equal(t, 3, overdueDays(due, due.Add(72*time.Hour+time.Minute)))
}
