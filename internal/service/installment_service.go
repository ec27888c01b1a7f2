package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/money"
	"github.com/mall-next/internal/payment"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InstallmentServiceDeps 分期服务依赖
type InstallmentServiceDeps struct {
	InstallmentRepo repository.InstallmentRepository
	OrderRepo       repository.OrderRepository
	Gateways        GatewayResolver
	Tasks           TaskDispatcher
	Notifier        Notifier
	Effects         *PaidEffects
	Config          config.InstallmentConfig
	GatewayTimeout  time.Duration
	NotifyURL       string
	ReturnURL       string
	Now             func() time.Time
}

// InstallmentService 分期付款服务：计划生成、逐期还款、逾期费、逐期退款
type InstallmentService struct {
	installmentRepo repository.InstallmentRepository
	orderRepo       repository.OrderRepository
	gateways        GatewayResolver
	tasks           TaskDispatcher
	notifier        Notifier
	effects         *PaidEffects
	cfg             config.InstallmentConfig
	gatewayTimeout  time.Duration
	notifyURL       string
	returnURL       string
	now             func() time.Time
}

// NewInstallmentService 创建分期服务
func NewInstallmentService(deps InstallmentServiceDeps) *InstallmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	timeout := deps.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &InstallmentService{
		installmentRepo: deps.InstallmentRepo,
		orderRepo:       deps.OrderRepo,
		gateways:        deps.Gateways,
		tasks:           deps.Tasks,
		notifier:        deps.Notifier,
		effects:         deps.Effects,
		cfg:             deps.Config,
		gatewayTimeout:  timeout,
		notifyURL:       strings.TrimSpace(deps.NotifyURL),
		returnURL:       strings.TrimSpace(deps.ReturnURL),
		now:             now,
	}
}

// Counts 可选期数
func (s *InstallmentService) Counts() []int {
	return s.cfg.Counts()
}

// PreviewFee 预览指定金额与期数下的本金、手续费拆分
func (s *InstallmentService) PreviewFee(total decimal.Decimal, count int) (money.Plan, error) {
	rate, ok := s.cfg.FeeRate(count)
	if !ok {
		return money.Plan{}, ErrInstallmentCountInvalid
	}
	minAmount, err := s.cfg.MinAmountDecimal()
	if err != nil {
		return money.Plan{}, fmt.Errorf("%w: %v", ErrInstallmentConfigMissing, err)
	}
	if total.LessThan(minAmount) {
		return money.Plan{}, fmt.Errorf("%w: %s", ErrInstallmentAmountTooLow, minAmount.StringFixed(2))
	}
	return money.FeeAndAmount(total, count, rate)
}

// PreviewOrderFee 预览订单分期费用
func (s *InstallmentService) PreviewOrderFee(userID, orderID uint, count int) (money.Plan, error) {
	order, err := s.loadPayableOrder(userID, orderID)
	if err != nil {
		return money.Plan{}, err
	}
	return s.PreviewFee(order.TotalAmount.Decimal, count)
}

// MinAmount 分期门槛金额（用于错误提示）
func (s *InstallmentService) MinAmount() string {
	minAmount, err := s.cfg.MinAmountDecimal()
	if err != nil {
		return ""
	}
	return minAmount.StringFixed(2)
}

// Create 为未支付订单创建分期计划，覆盖尚未开始还款的旧计划
func (s *InstallmentService) Create(ctx context.Context, userID, orderID uint, count int) (*models.Installment, error) {
	order, err := s.loadPayableOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	plan, err := s.PreviewFee(order.TotalAmount.Decimal, count)
	if err != nil {
		return nil, err
	}
	feeRate, _ := s.cfg.FeeRate(count)
	fineRate, err := s.cfg.FineRateDecimal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstallmentConfigMissing, err)
	}

	now := s.now()
	firstDue := nextMidnight(now)
	interval := s.cfg.DueInterval()
	installment := &models.Installment{
		UserID:     order.UserID,
		OrderID:    order.ID,
		BaseAmount: order.TotalAmount,
		Count:      count,
		FeeRate:    feeRate,
		FineRate:   fineRate,
		Status:     constants.InstallmentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for seq := 1; seq <= count; seq++ {
		installment.Items = append(installment.Items, models.InstallmentItem{
			Sequence:     seq,
			BaseAmount:   models.NewMoneyFromDecimal(plan.Amount.At(seq, count)),
			Fee:          models.NewMoneyFromDecimal(plan.Fee.At(seq, count)),
			DueDate:      firstDue.AddDate(0, 0, (seq-1)*interval),
			RefundStatus: constants.InstallmentRefundPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.installmentRepo.WithTx(tx)
		if err := repo.DeletePendingByOrderID(order.ID); err != nil {
			return err
		}
		no, err := generateUniqueSerial(now, repo.ExistsNo)
		if err != nil {
			return err
		}
		installment.No = no
		return repo.Create(installment)
	})
	if err != nil {
		return nil, err
	}
	logger.Debugw("installment_created",
		"installment_id", installment.ID,
		"order_id", order.ID,
		"count", count,
		"base_avg", plan.Amount.Avg.StringFixed(2),
		"base_last", plan.Amount.Last.StringFixed(2),
		"fee_total", plan.Fee.Total.StringFixed(2),
	)
	return s.get(installment.ID)
}

// List 用户分期列表
func (s *InstallmentService) List(filter repository.InstallmentListFilter) ([]models.Installment, int64, error) {
	return s.installmentRepo.ListByUser(filter)
}

// Get 用户分期详情
func (s *InstallmentService) Get(userID, installmentID uint) (*models.Installment, error) {
	installment, err := s.installmentRepo.GetByIDAndUser(installmentID, userID)
	if err != nil {
		return nil, err
	}
	if installment == nil {
		return nil, ErrInstallmentNotFound
	}
	return installment, nil
}

// ApplyPayment 记录某一期还款：第一期使订单变为已支付，最后一期结清分期
func (s *InstallmentService) ApplyPayment(ctx context.Context, installmentID uint, sequence int, method, paymentNo string) (*models.Installment, error) {
	installment, err := s.get(installmentID)
	if err != nil {
		return nil, err
	}
	item := findItemBySequence(installment, sequence)
	if item == nil {
		return nil, ErrInstallmentItemNotFound
	}
	if item.IsPaid() {
		return nil, ErrDuplicatePayment
	}

	now := s.now()
	orderPaid := false
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.installmentRepo.WithTx(tx)
		ok, err := repo.MarkItemPaid(item.ID, method, paymentNo, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDuplicatePayment
		}
		if item.Sequence == 1 {
			ok, err := s.orderRepo.WithTx(tx).MarkPaid(installment.OrderID, constants.PaymentMethodInstallment, installment.No, now)
			if err != nil {
				return err
			}
			if !ok {
				return ErrOrderClosed
			}
			orderPaid = true
			if err := repo.UpdateStatus(installment.ID, constants.InstallmentStatusRepaying); err != nil {
				return err
			}
		}
		if item.Sequence == installment.Count {
			return repo.UpdateStatus(installment.ID, constants.InstallmentStatusFinished)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderClosed) {
			logger.Warnw("payment_on_closed_order",
				"order_id", installment.OrderID,
				"installment_id", installment.ID,
				"sequence", sequence,
				"payment_no", paymentNo,
			)
		}
		return nil, err
	}

	logger.Infow("installment_item_paid",
		"installment_id", installment.ID,
		"sequence", sequence,
		"payment_method", method,
		"payment_no", paymentNo,
	)
	if orderPaid && s.effects != nil {
		if order, err := s.orderRepo.GetByID(installment.OrderID); err == nil && order != nil {
			s.effects.Apply(ctx, order)
		}
	}
	updated, err := s.get(installment.ID)
	if err != nil {
		return nil, err
	}
	s.notifyPaid(ctx, updated, sequence)
	return updated, nil
}

func (s *InstallmentService) notifyPaid(ctx context.Context, installment *models.Installment, sequence int) {
	if s.notifier == nil {
		return
	}
	payload := map[string]interface{}{
		"installment_id": installment.ID,
		"installment_no": installment.No,
		"sequence":       sequence,
		"count":          installment.Count,
		"all_paid":       true,
	}
	if item := findItemBySequence(installment, sequence); item != nil {
		payload["amount"] = models.NewMoneyFromDecimal(item.TotalAmount()).String()
	}
	if next := nextUnpaidItem(installment); next != nil {
		payload["all_paid"] = false
		payload["next_sequence"] = next.Sequence
		payload["next_due_date"] = next.DueDate.Format("2006-01-02")
		payload["next_amount"] = models.NewMoneyFromDecimal(next.TotalAmount()).String()
	}
	s.notifier.Notify(ctx, installment.UserID, constants.NotifyInstallmentPaid, payload)
}

// ChargeItemInput 发起分期还款输入
type ChargeItemInput struct {
	UserID        uint
	InstallmentID uint
	ItemID        uint
	ClientIP      string
}

// ChargeItem 通过支付宝偿还某一期，只允许偿还最早一期未还款
func (s *InstallmentService) ChargeItem(ctx context.Context, input ChargeItemInput) (*payment.ChargeResult, error) {
	installment, err := s.Get(input.UserID, input.InstallmentID)
	if err != nil {
		return nil, err
	}
	if installment.Order == nil || installment.Order.Closed {
		return nil, ErrOrderClosed
	}
	var item *models.InstallmentItem
	for i := range installment.Items {
		if installment.Items[i].ID == input.ItemID {
			item = &installment.Items[i]
			break
		}
	}
	if item == nil {
		return nil, ErrInstallmentItemNotFound
	}
	if item.IsPaid() {
		return nil, ErrDuplicatePayment
	}
	if next := nextUnpaidItem(installment); next == nil || next.ID != item.ID {
		return nil, ErrInstallmentItemNotNext
	}

	gateway, err := resolveGateway(s.gateways, constants.PaymentMethodAlipay)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := gateway.Charge(callCtx, payment.ChargeRequest{
		OutTradeNo: item.ItemNo(installment.No),
		Amount:     item.TotalAmount(),
		Subject:    fmt.Sprintf("分期订单(%d/%d期): %s", item.Sequence, installment.Count, installment.No),
		NotifyURL:  s.notifyURL,
		ReturnURL:  s.returnURL,
		ClientIP:   input.ClientIP,
	})
	if err != nil {
		logger.Errorw("installment_charge_failed",
			"installment_id", installment.ID,
			"sequence", item.Sequence,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGatewayUnavailable, err)
	}
	return result, nil
}

// HandleAlipayNotify 处理分期还款的支付宝异步通知
func (s *InstallmentService) HandleAlipayNotify(ctx context.Context, r *http.Request) error {
	gateway, err := resolveGateway(s.gateways, constants.PaymentMethodAlipay)
	if err != nil {
		return err
	}
	result, err := gateway.VerifyCallback(ctx, r)
	if err != nil {
		logger.Warnw("installment_notify_verify_failed", "error", err)
		return fmt.Errorf("%w: %v", ErrPaymentCallbackInvalid, err)
	}
	if !isTradeSucceeded(result.TradeStatus) {
		return nil
	}
	no, sequence, ok := parseItemRef(result.OrderRef)
	if !ok {
		return ErrPaymentCallbackInvalid
	}
	installment, err := s.installmentRepo.GetByNo(no)
	if err != nil {
		return err
	}
	if installment == nil {
		return ErrInstallmentNotFound
	}
	item := findItemBySequence(installment, sequence)
	if item == nil {
		return ErrInstallmentItemNotFound
	}
	if item.IsPaid() {
		return nil
	}
	if !result.AmountPaid.IsZero() && !result.AmountPaid.Equal(item.TotalAmount()) {
		// 逾期费每日重算，回调金额以网关实收为准，仅记录差异
		logger.Warnw("installment_notify_amount_differs",
			"installment_id", installment.ID,
			"sequence", sequence,
			"expected", item.TotalAmount().StringFixed(2),
			"paid", result.AmountPaid.StringFixed(2),
		)
	}
	_, err = s.ApplyPayment(ctx, installment.ID, sequence, constants.PaymentMethodAlipay, result.TradeNo)
	if errors.Is(err, ErrDuplicatePayment) {
		return nil
	}
	return err
}

// AccrueFines 重算逾期费：ceil((本金+手续费) × 日费率 × 逾期天数 / 100)，不超过本金+手续费
func (s *InstallmentService) AccrueFines(ctx context.Context) (int, error) {
	now := s.now()
	installments, err := s.installmentRepo.ListRepayingWithOverdue(now)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, installment := range installments {
		for _, item := range installment.Items {
			if !item.IsOverdue(now) {
				continue
			}
			fine := money.CappedFine(item.Principal(), installment.FineRate, overdueDays(item.DueDate, now))
			if fine.Equal(item.FineAmount()) {
				continue
			}
			if err := s.installmentRepo.UpdateItemFine(item.ID, models.NewMoneyFromDecimal(fine)); err != nil {
				logger.Warnw("installment_fine_update_failed",
					"installment_id", installment.ID,
					"item_id", item.ID,
					"error", err,
				)
				continue
			}
			updated++
		}
	}
	return updated, nil
}

// Refund 分期订单退款：订单置为退款中后逐期退款
func (s *InstallmentService) Refund(ctx context.Context, order *models.Order, from []string) error {
	installment, err := s.installmentRepo.GetByOrderID(order.ID)
	if err != nil {
		return err
	}
	if installment == nil {
		return ErrInstallmentNotFound
	}
	if installment.Status == constants.InstallmentStatusPending {
		return ErrInstallmentNotRefundable
	}
	refundNo := order.RefundNoValue()
	if refundNo == "" {
		refundNo, err = generateRefundNo(s.orderRepo.ExistsRefundNo)
		if err != nil {
			return err
		}
	}
	ok, err := s.orderRepo.TransitionRefund(order.ID, from, map[string]interface{}{
		"refund_status": constants.RefundStatusProcessing,
		"refund_no":     refundNo,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrRefundStatusInvalid
	}

	if dispatcherEnabled(s.tasks) {
		err := s.tasks.EnqueueInstallmentRefund(queue.InstallmentRefundPayload{InstallmentID: installment.ID})
		if err == nil {
			return nil
		}
		logger.Warnw("installment_enqueue_refund_failed",
			"installment_id", installment.ID,
			"error", err,
		)
	}
	return s.RefundItems(ctx, installment.ID)
}

// RefundItems 对已还款且未退款成功的期数逐一退款，单期失败不影响其它期
func (s *InstallmentService) RefundItems(ctx context.Context, installmentID uint) error {
	installment, err := s.get(installmentID)
	if err != nil {
		return err
	}
	order := installment.Order
	if order == nil || order.RefundStatus != constants.RefundStatusProcessing {
		logger.Debugw("installment_refund_skipped", "installment_id", installmentID)
		return nil
	}
	for i := range installment.Items {
		item := installment.Items[i]
		if !item.IsPaid() || item.RefundStatus == constants.InstallmentRefundSuccess {
			continue
		}
		if err := s.refundItem(ctx, installment, order, item); err != nil {
			logger.Warnw("installment_item_refund_failed",
				"installment_id", installment.ID,
				"item_no", item.ItemNo(installment.No),
				"error", err,
			)
		}
	}
	return s.CheckRefunding(ctx, installment.ID)
}

// refundItem 退回某一期本金；支付宝同步出结果，微信等待退款通知
func (s *InstallmentService) refundItem(ctx context.Context, installment *models.Installment, order *models.Order, item models.InstallmentItem) error {
	switch item.PaymentMethod {
	case constants.PaymentMethodAlipay, constants.PaymentMethodWechat:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRefundPaymentMethod, item.PaymentMethod)
	}
	gateway, err := resolveGateway(s.gateways, item.PaymentMethod)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := gateway.Refund(callCtx, payment.RefundRequest{
		OutTradeNo:  item.ItemNo(installment.No),
		RefundNo:    item.RefundNo(order.RefundNoValue()),
		Amount:      item.BaseAmount.Decimal,
		TotalAmount: item.TotalAmount(),
	})
	if err != nil {
		if updateErr := s.installmentRepo.UpdateItemRefund(item.ID, constants.InstallmentRefundFailed, refundCodeGatewayError); updateErr != nil {
			return updateErr
		}
		return err
	}
	switch {
	case result.Failed():
		return s.installmentRepo.UpdateItemRefund(item.ID, constants.InstallmentRefundFailed, result.FailureCode)
	case result.Pending:
		return s.installmentRepo.UpdateItemRefund(item.ID, constants.InstallmentRefundProcessing, "")
	default:
		return s.installmentRepo.UpdateItemRefund(item.ID, constants.InstallmentRefundSuccess, "")
	}
}

// CheckRefunding 全部已还款期数退款成功后，订单退款状态置为成功
func (s *InstallmentService) CheckRefunding(ctx context.Context, installmentID uint) error {
	installment, err := s.get(installmentID)
	if err != nil {
		return err
	}
	order := installment.Order
	if order == nil || order.RefundStatus != constants.RefundStatusProcessing {
		logger.Debugw("installment_check_refunding_skipped", "installment_id", installmentID)
		return nil
	}
	for _, item := range installment.Items {
		if item.IsPaid() && item.RefundStatus != constants.InstallmentRefundSuccess {
			return nil
		}
	}
	ok, err := s.orderRepo.TransitionRefund(order.ID, []string{constants.RefundStatusProcessing}, map[string]interface{}{
		"refund_status": constants.RefundStatusSuccess,
	})
	if err != nil {
		return err
	}
	if ok {
		logger.Infow("installment_refund_finished",
			"installment_id", installment.ID,
			"order_id", order.ID,
		)
		if s.notifier != nil {
			s.notifier.Notify(ctx, order.UserID, constants.NotifyOrderRefunded, map[string]interface{}{
				"order_id":       order.ID,
				"order_no":       order.OrderNo,
				"refund_no":      order.RefundNoValue(),
				"installment_no": installment.No,
			})
		}
	}
	return nil
}

// ReconcileRefunding 对退款中的分期订单逐一检查是否已全部退款
func (s *InstallmentService) ReconcileRefunding(ctx context.Context, limit int) (int, error) {
	installments, err := s.installmentRepo.ListRefundProcessing(limit)
	if err != nil {
		return 0, err
	}
	for _, installment := range installments {
		if err := s.CheckRefunding(ctx, installment.ID); err != nil {
			logger.Warnw("installment_reconcile_refund_failed",
				"installment_id", installment.ID,
				"error", err,
			)
		}
	}
	return len(installments), nil
}

// ApplyItemRefundNotify 处理分期子项的异步退款通知
func (s *InstallmentService) ApplyItemRefundNotify(ctx context.Context, result *payment.RefundCallbackResult) error {
	if result == nil {
		return ErrPaymentCallbackInvalid
	}
	no, sequence, ok := parseItemRef(result.OrderRef)
	if !ok {
		return ErrPaymentCallbackInvalid
	}
	installment, err := s.installmentRepo.GetByNo(no)
	if err != nil {
		return err
	}
	if installment == nil {
		return ErrInstallmentNotFound
	}
	item := findItemBySequence(installment, sequence)
	if item == nil {
		return ErrInstallmentItemNotFound
	}
	if item.RefundStatus != constants.InstallmentRefundProcessing {
		return nil
	}
	status, code := constants.InstallmentRefundSuccess, ""
	if !result.Succeeded {
		status, code = constants.InstallmentRefundFailed, result.FailureCode
	}
	if err := s.installmentRepo.UpdateItemRefund(item.ID, status, code); err != nil {
		return err
	}
	return s.CheckRefunding(ctx, installment.ID)
}

func (s *InstallmentService) get(id uint) (*models.Installment, error) {
	installment, err := s.installmentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if installment == nil {
		return nil, ErrInstallmentNotFound
	}
	return installment, nil
}

// loadPayableOrder 获取未支付且未关闭的用户订单
func (s *InstallmentService) loadPayableOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsPaid() {
		return nil, ErrOrderAlreadyPaid
	}
	if order.Closed {
		return nil, ErrOrderClosed
	}
	return order, nil
}

func findItemBySequence(installment *models.Installment, sequence int) *models.InstallmentItem {
	for i := range installment.Items {
		if installment.Items[i].Sequence == sequence {
			return &installment.Items[i]
		}
	}
	return nil
}

func nextUnpaidItem(installment *models.Installment) *models.InstallmentItem {
	var next *models.InstallmentItem
	for i := range installment.Items {
		item := &installment.Items[i]
		if item.IsPaid() {
			continue
		}
		if next == nil || item.Sequence < next.Sequence {
			next = item
		}
	}
	return next
}

// parseItemRef 解析 "分期流水号_期序号"
func parseItemRef(ref string) (string, int, bool) {
	idx := strings.LastIndex(ref, "_")
	if idx <= 0 || idx == len(ref)-1 {
		return "", 0, false
	}
	sequence, err := strconv.Atoi(ref[idx+1:])
	if err != nil || sequence <= 0 {
		return "", 0, false
	}
	return ref[:idx], sequence, true
}

// nextMidnight 次日零点（本地时区）
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// overdueDays 到期日之后经过的完整天数
func overdueDays(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}
