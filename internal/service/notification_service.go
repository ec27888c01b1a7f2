package service

import (
	"context"
	"time"

	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"
)

// NotificationService 通知触发服务：入队后由 worker 落库，失败不影响主流程
type NotificationService struct {
	repo  repository.NotificationRepository
	tasks TaskDispatcher
}

var _ Notifier = (*NotificationService)(nil)

// NewNotificationService 创建通知服务
func NewNotificationService(repo repository.NotificationRepository, tasks TaskDispatcher) *NotificationService {
	return &NotificationService{repo: repo, tasks: tasks}
}

// Notify 触发通知；队列不可用时同步落库
func (s *NotificationService) Notify(ctx context.Context, userID uint, kind string, payload map[string]interface{}) {
	if s == nil || userID == 0 || kind == "" {
		return
	}
	task := queue.NotificationPayload{UserID: userID, Kind: kind, Data: payload}
	if dispatcherEnabled(s.tasks) {
		err := s.tasks.EnqueueNotification(task)
		if err == nil {
			return
		}
		logger.Warnw("notification_enqueue_failed",
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
	}
	if err := s.Dispatch(ctx, task); err != nil {
		logger.Warnw("notification_dispatch_inline_failed",
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
	}
}

// Dispatch 持久化通知记录
func (s *NotificationService) Dispatch(ctx context.Context, payload queue.NotificationPayload) error {
	record := &models.NotificationRecord{
		UserID:    payload.UserID,
		Kind:      payload.Kind,
		Payload:   models.JSON(payload.Data),
		CreatedAt: time.Now(),
	}
	if s.repo != nil {
		if err := s.repo.Create(record); err != nil {
			return err
		}
	}
	logger.Infow("notification_dispatched",
		"user_id", payload.UserID,
		"kind", payload.Kind,
		"record_id", record.ID,
	)
	return nil
}
