package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mall-next/internal/cache"
	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/metrics"
	"github.com/mall-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	refundReconcileBatch = 100
	expireSweepBatch     = 200
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	_ = ctx
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// SchedulerService 周期任务服务，不依赖异步队列是否启用
type SchedulerService struct {
	scheduler *Scheduler
}

// NewSchedulerService 创建周期任务服务
func NewSchedulerService(consumer *Consumer) *SchedulerService {
	return &SchedulerService{scheduler: NewScheduler(consumer)}
}

// Name 服务名称
func (s *SchedulerService) Name() string {
	return "scheduler"
}

// Start 启动全部任务循环并阻塞到 ctx 结束
func (s *SchedulerService) Start(ctx context.Context) error {
	if s == nil || s.scheduler == nil {
		return errors.New("scheduler not initialized")
	}
	logger.Component("scheduler").Infow("scheduler_start", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start(ctx)
	<-ctx.Done()
	return nil
}

// Stop 任务循环随 ctx 退出
func (s *SchedulerService) Stop(ctx context.Context) error {
	return nil
}

// Job 周期性对账任务
type Job struct {
	Name     string
	Lock     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Scheduler 周期任务调度：每个任务独立 ticker，执行前抢占分布式锁
type Scheduler struct {
	jobs    []Job
	metrics *metrics.Collector
}

// NewScheduler 根据容器中已初始化的服务组装周期任务
func NewScheduler(consumer *Consumer) *Scheduler {
	scheduler := &Scheduler{}
	if consumer == nil || consumer.Container == nil {
		return scheduler
	}
	c := consumer.Container
	scheduler.metrics = c.Metrics
	if c.CrowdfundingService != nil {
		scheduler.jobs = append(scheduler.jobs, Job{
			Name:     "crowdfunding_finalize",
			Lock:     constants.SchedulerLockFinalize,
			Interval: c.Config.Crowdfunding.FinalizeInterval(),
			Run:      c.CrowdfundingService.FinalizeDue,
		})
	}
	if c.InstallmentService != nil {
		scheduler.jobs = append(scheduler.jobs,
			Job{
				Name:     "installment_fine",
				Lock:     constants.SchedulerLockFineAccrual,
				Interval: c.Config.Reconcile.FineInterval(),
				Run:      c.InstallmentService.AccrueFines,
			},
			Job{
				Name:     "installment_refund_check",
				Lock:     constants.SchedulerLockRefundReconcile,
				Interval: c.Config.Reconcile.RefundCheckInterval(),
				Run: func(ctx context.Context) (int, error) {
					return c.InstallmentService.ReconcileRefunding(ctx, refundReconcileBatch)
				},
			},
		)
	}
	if c.OrderService != nil {
		scheduler.jobs = append(scheduler.jobs, Job{
			Name:     "order_expire_sweep",
			Lock:     constants.SchedulerLockExpireSweep,
			Interval: c.Config.Reconcile.ExpireSweepInterval(),
			Run: func(ctx context.Context) (int, error) {
				return c.OrderService.SweepExpiredOrders(ctx, expireSweepBatch)
			},
		})
	}
	return scheduler
}

// Jobs 已注册的任务
func (s *Scheduler) Jobs() []Job {
	if s == nil {
		return nil
	}
	return s.jobs
}

// Start 为每个任务启动循环，ctx 结束时退出
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	for _, job := range s.jobs {
		go s.loop(ctx, job)
	}
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.RunOnce(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce 抢锁后执行一次任务；锁被其他实例持有时跳过
func (s *Scheduler) RunOnce(ctx context.Context, job Job) string {
	ttl := job.Interval
	if ttl <= 0 {
		ttl = time.Minute
	}
	log := logger.Component("scheduler", "job", job.Name)
	lock, ok, err := cache.TryLock(ctx, job.Lock, ttl)
	if err != nil {
		log.Warnw("scheduler_lock_failed", "error", err)
		s.metrics.ObserveSchedulerRun(job.Name, metrics.ResultFailure, 0)
		return metrics.ResultFailure
	}
	if !ok {
		log.Debugw("scheduler_lock_busy")
		s.metrics.ObserveSchedulerRun(job.Name, metrics.ResultSkipped, 0)
		return metrics.ResultSkipped
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Warnw("scheduler_lock_release_failed", "error", err)
		}
	}()

	processed, err := job.Run(ctx)
	if err != nil {
		log.Warnw("scheduler_job_failed", "processed", processed, "error", err)
		s.metrics.ObserveSchedulerRun(job.Name, metrics.ResultFailure, processed)
		return metrics.ResultFailure
	}
	if processed > 0 {
		log.Infow("scheduler_job_done", "processed", processed)
	}
	s.metrics.ObserveSchedulerRun(job.Name, metrics.ResultSuccess, processed)
	return metrics.ResultSuccess
}
