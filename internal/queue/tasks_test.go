package queue

import (
	"encoding/json"
	"testing"

	"github.com/mall-next/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskEncodesPayload(t *testing.T) {
	task, err := NewTask(TaskNotificationDispatch, NotificationPayload{
		UserID: 7,
		Kind:   "installment_paid",
		Data:   map[string]interface{}{"sequence": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, TaskNotificationDispatch, task.Type())

	var decoded NotificationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, uint(7), decoded.UserID)
	assert.Equal(t, "installment_paid", decoded.Kind)
}

func TestEveryTaskHasOptions(t *testing.T) {
	for _, taskType := range []string{
		TaskOrderTimeoutCancel, TaskOrderRefund, TaskInstallmentRefund,
		TaskCrowdfundingRecompute, TaskNotificationDispatch, TaskSearchProductSync,
	} {
		assert.NotEmpty(t, taskOptions[taskType], taskType)
	}
}

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.EnqueueOrderRefund(OrderRefundPayload{OrderID: 1}))
	assert.NoError(t, client.EnqueueOrderTimeoutCancel(OrderTimeoutCancelPayload{OrderID: 1}, -1))
	assert.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.EnqueueProductSync(ProductSyncPayload{ProductID: 1}))
}

func TestBuildServerConfig(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	assert.Equal(t, "redis:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 1, cfg.Queues[CriticalQueue])

	opt, cfg = BuildServerConfig(&config.QueueConfig{Concurrency: 4, Queues: map[string]int{CriticalQueue: 6, DefaultQueue: 2}})
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 6, cfg.Queues[CriticalQueue])

	opt, _ = BuildServerConfig(nil)
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
}
