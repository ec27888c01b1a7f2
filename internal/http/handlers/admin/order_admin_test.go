package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/provider"
	"github.com/mall-next/internal/repository"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAdminOrderTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_order_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		_ = sqlDB.Close()
	})
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	orders := service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:      repository.NewOrderRepository(db),
		ProductSKURepo: repository.NewProductSKURepository(db),
		CouponRepo:     repository.NewCouponRepository(db),
		UserRepo:       repository.NewUserRepository(db),
	})
	h := New(&provider.Container{OrderService: orders})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("operator_id", uint(1))
		c.Next()
	})
	r.POST("/admin/orders/:id/refund", h.HandleRefund)
	r.POST("/admin/orders/:id/ship", h.ShipOrder)
	return db, r
}

func seedAdminOrder(t *testing.T, db *gorm.DB, paid bool, refundStatus string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:      fmt.Sprintf("20260301120000%06d", time.Now().UnixNano()%1000000),
		UserID:       7,
		Type:         constants.OrderTypeNormal,
		TotalAmount:  models.MustMoney("120.00"),
		RefundStatus: refundStatus,
		ShipStatus:   constants.ShipStatusPending,
		Extra:        models.JSON{"refund_reason": "不想要了"},
	}
	if paid {
		now := time.Now()
		order.PaidAt = &now
		order.PaymentMethod = constants.PaymentMethodAlipay
		order.PaymentNo = "2026030122001"
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) (int, string) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	var resp struct {
		StatusCode int    `json:"status_code"`
		Msg        string `json:"msg"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp.StatusCode, resp.Msg
}

func TestHandleRefundDisagreeKeepsReason(t *testing.T) {
	db, r := setupAdminOrderTest(t)
	order := seedAdminOrder(t, db, true, constants.RefundStatusApplied)

	code, msg := postJSON(t, r, fmt.Sprintf("/admin/orders/%d/refund", order.ID), gin.H{"agree": false, "reason": "商品已使用"})
	require.Equal(t, 0, code, msg)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, constants.RefundStatusPending, reloaded.RefundStatus)
	assert.Equal(t, "商品已使用", reloaded.Extra.String("refund_disagree_reason"))

	again, _ := postJSON(t, r, fmt.Sprintf("/admin/orders/%d/refund", order.ID), gin.H{"agree": false})
	assert.Equal(t, 400, again)
}

func TestHandleRefundRequiresDecision(t *testing.T) {
	db, r := setupAdminOrderTest(t)
	order := seedAdminOrder(t, db, true, constants.RefundStatusApplied)

	code, _ := postJSON(t, r, fmt.Sprintf("/admin/orders/%d/refund", order.ID), gin.H{"reason": "missing agree"})
	assert.Equal(t, 400, code)
	missing, _ := postJSON(t, r, "/admin/orders/99999/refund", gin.H{"agree": true})
	assert.Equal(t, 404, missing)
}

func TestShipOrder(t *testing.T) {
	db, r := setupAdminOrderTest(t)
	unpaid := seedAdminOrder(t, db, false, constants.RefundStatusPending)
	paid := seedAdminOrder(t, db, true, constants.RefundStatusPending)
	body := gin.H{"express_company": "顺丰", "express_no": "SF1234567890"}

	code, msg := postJSON(t, r, fmt.Sprintf("/admin/orders/%d/ship", unpaid.ID), body)
	assert.Equal(t, 400, code)
	assert.Equal(t, "订单未支付", msg)

	code, msg = postJSON(t, r, fmt.Sprintf("/admin/orders/%d/ship", paid.ID), body)
	require.Equal(t, 0, code, msg)
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, paid.ID).Error)
	assert.Equal(t, constants.ShipStatusDelivered, reloaded.ShipStatus)
	assert.Equal(t, "SF1234567890", reloaded.ShipData.String("express_no"))

	duplicate, _ := postJSON(t, r, fmt.Sprintf("/admin/orders/%d/ship", paid.ID), body)
	assert.Equal(t, 400, duplicate)
}
