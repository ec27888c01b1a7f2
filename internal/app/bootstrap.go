package app

import (
	"context"
	"errors"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/provider"
	"github.com/mall-next/internal/router"
	"github.com/mall-next/internal/worker"
)

const seckillWarmUpTimeout = 30 * time.Second

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		warmUpSeckillStock(container)
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// 初始化 Worker 与周期任务；队列关闭时仍需要周期任务兜底过期订单
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, workerService)
		}
		services = append(services, worker.NewSchedulerService(consumer))
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// warmUpSeckillStock 启动时把秒杀 SKU 库存写入缓存，失败只告警
func warmUpSeckillStock(container *provider.Container) {
	if container == nil || container.SeckillService == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), seckillWarmUpTimeout)
	defer cancel()
	count, err := container.SeckillService.WarmUp(ctx)
	if err != nil {
		logger.Warnw("seckill_stock_warm_up_failed", "error", err)
		return
	}
	logger.Infow("seckill_stock_warm_up_done", "product_count", count)
}

// Run 应用启动入口
func Run(opts Options) error {
	if _, err := ParseMode(opts.Mode); err != nil {
		return err
	}
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
