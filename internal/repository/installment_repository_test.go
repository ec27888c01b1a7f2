package repository

import (
	"testing"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"

	"github.com/shopspring/decimal"
)

func seedInstallment(t *testing.T, repo *GormInstallmentRepository, order *models.Order, status string, dueOffsets []time.Duration) *models.Installment {
	t.Helper()
	installment := &models.Installment{
		No:         "I" + order.OrderNo,
		UserID:     order.UserID,
		OrderID:    order.ID,
		BaseAmount: order.TotalAmount,
		Count:      len(dueOffsets),
		FeeRate:    decimal.RequireFromString("1.5"),
		FineRate:   decimal.RequireFromString("0.05"),
		Status:     status,
	}
	for idx, offset := range dueOffsets {
		installment.Items = append(installment.Items, models.InstallmentItem{
			Sequence:     idx + 1,
			BaseAmount:   models.MustMoney("10.00"),
			Fee:          models.MustMoney("0.15"),
			DueDate:      time.Now().Add(offset),
			RefundStatus: constants.InstallmentRefundPending,
		})
	}
	if err := repo.Create(installment); err != nil {
		t.Fatalf("create installment failed: %v", err)
	}
	return installment
}

func TestMarkItemPaidOnlyOnce(t *testing.T) {
	db := openRepositoryTestDB(t)
	_, sku := seedProductWithSKU(t, db, constants.ProductTypeNormal, "30.00", 10)
	order := seedOrder(t, db, 1, constants.OrderTypeNormal, sku, 1, false)
	repo := NewInstallmentRepository(db)
	installment := seedInstallment(t, repo, order, constants.InstallmentStatusPending, []time.Duration{24 * time.Hour, 48 * time.Hour})

	item := installment.Items[0]
	ok, err := repo.MarkItemPaid(item.ID, constants.PaymentMethodAlipay, "t1", time.Now())
	if err != nil || !ok {
		t.Fatalf("first pay want ok got %v err=%v", ok, err)
	}
	ok, err = repo.MarkItemPaid(item.ID, constants.PaymentMethodAlipay, "t2", time.Now())
	if err != nil || ok {
		t.Fatalf("second pay must not apply, got %v err=%v", ok, err)
	}

	reloaded, err := repo.GetByNo(installment.No)
	if err != nil || reloaded == nil {
		t.Fatalf("reload installment failed: %v", err)
	}
	if len(reloaded.Items) != 2 || reloaded.Items[0].Sequence != 1 {
		t.Fatalf("items should be ordered by sequence: %+v", reloaded.Items)
	}
	if reloaded.Items[0].PaymentNo != "t1" {
		t.Fatalf("payment no overwritten: %s", reloaded.Items[0].PaymentNo)
	}
}

func TestDeletePendingKeepsRepayingPlans(t *testing.T) {
	db := openRepositoryTestDB(t)
	_, sku := seedProductWithSKU(t, db, constants.ProductTypeNormal, "30.00", 10)
	pendingOrder := seedOrder(t, db, 1, constants.OrderTypeNormal, sku, 1, false)
	repayingOrder := seedOrder(t, db, 2, constants.OrderTypeNormal, sku, 1, true)
	repo := NewInstallmentRepository(db)
	seedInstallment(t, repo, pendingOrder, constants.InstallmentStatusPending, []time.Duration{time.Hour})
	seedInstallment(t, repo, repayingOrder, constants.InstallmentStatusRepaying, []time.Duration{time.Hour})

	if err := repo.DeletePendingByOrderID(pendingOrder.ID); err != nil {
		t.Fatalf("delete pending failed: %v", err)
	}
	if err := repo.DeletePendingByOrderID(repayingOrder.ID); err != nil {
		t.Fatalf("delete pending failed: %v", err)
	}
	if got, _ := repo.GetByOrderID(pendingOrder.ID); got != nil {
		t.Fatalf("pending installment should be deleted")
	}
	var orphanItems int64
	db.Model(&models.InstallmentItem{}).Where("installment_id NOT IN (SELECT id FROM installments)").Count(&orphanItems)
	if orphanItems != 0 {
		t.Fatalf("items of deleted plan must be removed, got %d", orphanItems)
	}
	if got, _ := repo.GetByOrderID(repayingOrder.ID); got == nil {
		t.Fatalf("repaying installment must be kept")
	}
}

func TestListRepayingWithOverdue(t *testing.T) {
	db := openRepositoryTestDB(t)
	_, sku := seedProductWithSKU(t, db, constants.ProductTypeNormal, "30.00", 10)
	overdueOrder := seedOrder(t, db, 1, constants.OrderTypeNormal, sku, 1, true)
	healthyOrder := seedOrder(t, db, 2, constants.OrderTypeNormal, sku, 1, true)
	refundedOrder := seedOrder(t, db, 3, constants.OrderTypeNormal, sku, 1, true)
	repo := NewInstallmentRepository(db)
	overdue := seedInstallment(t, repo, overdueOrder, constants.InstallmentStatusRepaying, []time.Duration{-72 * time.Hour, 24 * time.Hour})
	seedInstallment(t, repo, healthyOrder, constants.InstallmentStatusRepaying, []time.Duration{24 * time.Hour})
	seedInstallment(t, repo, refundedOrder, constants.InstallmentStatusRepaying, []time.Duration{-72 * time.Hour})
	if err := NewOrderRepository(db).Update(refundedOrder.ID, map[string]interface{}{"refund_status": constants.RefundStatusSuccess}); err != nil {
		t.Fatalf("update refunded order failed: %v", err)
	}

	list, err := repo.ListRepayingWithOverdue(time.Now())
	if err != nil {
		t.Fatalf("list overdue failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != overdue.ID {
		t.Fatalf("want only installment %d, got %+v", overdue.ID, list)
	}
	if len(list[0].Items) != 2 {
		t.Fatalf("items should be preloaded, got %d", len(list[0].Items))
	}
}
