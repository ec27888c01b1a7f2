package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	DefaultQueue  = constants.QueueDefault
	CriticalQueue = constants.QueueCritical // 资金相关：退款
)

// 各类任务的固定投递参数；调用方只补充延迟与去重 ID
var taskOptions = map[string][]asynq.Option{
	TaskOrderTimeoutCancel:    {asynq.Queue(DefaultQueue)},
	TaskOrderRefund:           {asynq.Queue(CriticalQueue), asynq.MaxRetry(3)},
	TaskInstallmentRefund:     {asynq.Queue(CriticalQueue), asynq.MaxRetry(3)},
	TaskCrowdfundingRecompute: {asynq.Queue(DefaultQueue)},
	TaskNotificationDispatch:  {asynq.Queue(DefaultQueue), asynq.MaxRetry(5)},
	TaskSearchProductSync:     {asynq.Queue(DefaultQueue), asynq.Unique(30 * time.Second)},
}

// Client asynq 投递端；未启用队列时所有 Enqueue 都是空操作，由调用方走同步兜底
type Client struct {
	client *asynq.Client
}

func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// dispatch 编码载荷并投递；同一 TaskID 已在队列中视为成功
func (c *Client) dispatch(taskType string, payload interface{}, extra ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewTask(taskType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", taskType, err)
	}
	opts := append(append([]asynq.Option{}, taskOptions[taskType]...), extra...)
	if _, err := c.client.Enqueue(task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

// EnqueueOrderTimeoutCancel 在 delay 后检查订单是否仍未支付；每个订单只排一次
func (c *Client) EnqueueOrderTimeoutCancel(payload OrderTimeoutCancelPayload, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	return c.dispatch(TaskOrderTimeoutCancel, payload,
		asynq.ProcessIn(delay),
		asynq.TaskID(fmt.Sprintf("order_timeout:%d", payload.OrderID)),
	)
}

func (c *Client) EnqueueOrderRefund(payload OrderRefundPayload) error {
	return c.dispatch(TaskOrderRefund, payload, asynq.TaskID(fmt.Sprintf("order_refund:%d", payload.OrderID)))
}

func (c *Client) EnqueueInstallmentRefund(payload InstallmentRefundPayload) error {
	return c.dispatch(TaskInstallmentRefund, payload)
}

func (c *Client) EnqueueCrowdfundingRecompute(payload CrowdfundingRecomputePayload) error {
	return c.dispatch(TaskCrowdfundingRecompute, payload)
}

func (c *Client) EnqueueNotification(payload NotificationPayload) error {
	return c.dispatch(TaskNotificationDispatch, payload)
}

func (c *Client) EnqueueProductSync(payload ProductSyncPayload) error {
	return c.dispatch(TaskSearchProductSync, payload)
}

// BuildServerConfig 生成 worker 端的连接与并发配置，默认两个队列同权重
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	server := asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{DefaultQueue: 1, CriticalQueue: 1},
	}
	if cfg != nil && cfg.Concurrency > 0 {
		server.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		server.Queues = cfg.Queues
	}
	return redisOpt(cfg), server
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
