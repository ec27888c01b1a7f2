package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-9")

	Error(c, CodeBadRequest, "库存不足")

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if w.Code != 200 || resp.StatusCode != CodeBadRequest || resp.RequestID != "req-9" || resp.Msg != "库存不足" {
		t.Fatalf("unexpected response: http=%d body=%s", w.Code, w.Body.String())
	}
}

func TestSuccessWithPageFlattensEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SuccessWithPage(c, []int{1, 2}, NewPagination(2, 20, 41))

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if body["status_code"] != float64(0) {
		t.Fatalf("unexpected status_code: %v", body["status_code"])
	}
	if _, ok := body["request_id"]; ok {
		t.Fatalf("request_id should be omitted when empty")
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total_page"] != float64(3) || pagination["page"] != float64(2) {
		t.Fatalf("unexpected pagination: %v", pagination)
	}
}

func TestAppError(t *testing.T) {
	cause := errors.New("db down")
	err := WrapError(CodeInternal, "服务器内部错误", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("AppError should unwrap to cause")
	}
	if err.IsClientError() {
		t.Fatalf("500 is not a client error")
	}
	if !WrapError(CodeNotFound, "订单不存在", nil).IsClientError() {
		t.Fatalf("404 is a client error")
	}
}
