package worker

import (
	"context"
	"time"

	"equilibre-volume/internal/worker/adapter"
	"equilibre-volume/internal/worker/cache"
	"equilibre-volume/internal/worker/config"
	"equilibre-volume/internal/worker/job"
	"equilibre-volume/internal/worker/monitor"
	"equilibre-volume/internal/worker/repository"
	"equilibre-volume/internal/worker/service"

	"go.uber.org/zap"
)

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	adapter   *adapter.SimpleAdapter
	scheduler *job.Scheduler
	metrics   *monitor.MetricsServer
}

// NewAdapter 组装成交量计算并按链注册
func NewAdapter(cfg config.Config, repo repository.Repository, logger *zap.Logger) (*adapter.SimpleAdapter, error) {
	llamaClient := repo.GetLlamaClient()
	volume := service.NewDailyVolume(cfg, logger, repo.GetChainClient(), llamaClient, llamaClient)

	a := adapter.NewSimpleAdapter()
	if err := a.Register(volume, cfg.Chain.StartTimestamp); err != nil {
		return nil, err
	}
	return a, nil
}

func New(cfg config.Config, logger *zap.Logger) *Core {
	// 初始化作业调度器
	scheduler := job.NewScheduler(logger)

	// 初始化repo
	repo := repository.New(cfg, logger)

	a, err := NewAdapter(cfg, repo, logger)
	if err != nil {
		logger.Fatal("Failed to register adapter", zap.Error(err))
	}

	// 定时：计算最近一个自然日的成交量
	dailyVolume := job.NewDailyVolume(a, cache.NewVolumeCache(logger), logger)
	interval := time.Duration(cfg.Job.Interval) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	scheduler.RegisterJob("daily_volume", interval, dailyVolume.Run)

	return &Core{
		cfg:       cfg,
		tl:        logger,
		repo:      repo,
		adapter:   a,
		scheduler: scheduler,
		metrics:   monitor.NewMetricsServer(cfg.Monitor, logger),
	}
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...", zap.Strings("chains", c.adapter.Chains()))
	// 启动监控服务
	c.metrics.Run()

	// 启动调度器
	c.scheduler.Start(ctx)
	c.tl.Info("Worker started successfully")

	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	c.scheduler.Stop(ctx)

	if err := c.metrics.Stop(ctx); err != nil {
		c.tl.Warn("Stop metrics server failed", zap.Error(err))
	}

	_ = c.repo.Close()

	c.tl.Info("Worker core stopped.")
}
