package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// JobFunc 作业执行函数
type JobFunc func(ctx context.Context) error

// Scheduler 作业调度器，周期作业启动时立即执行一次
type Scheduler struct {
	mu     sync.Mutex
	jobs   []*ScheduledJob
	cancel context.CancelFunc
	wg     *conc.WaitGroup
	tl     *zap.Logger
}

// ScheduledJob 调度中的作业；interval 为 0 表示只运行一次
type ScheduledJob struct {
	name     string
	interval time.Duration
	fn       JobFunc

	runs     int
	failures int
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{tl: logger}
}

// RegisterJob 注册周期作业，单次执行最多占用半个周期
func (s *Scheduler) RegisterJob(name string, interval time.Duration, fn JobFunc) {
	s.register(&ScheduledJob{name: name, interval: interval, fn: fn})
	s.tl.Info("Registered job", zap.String("job", name), zap.Duration("interval", interval))
}

// RegisterOnceJob 注册只运行一次的作业
func (s *Scheduler) RegisterOnceJob(name string, fn JobFunc) {
	s.register(&ScheduledJob{name: name, fn: fn})
	s.tl.Info("Registered once job", zap.String("job", name))
}

func (s *Scheduler) register(job *ScheduledJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start 启动所有已注册作业，重复调用无效
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wg != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg = conc.NewWaitGroup()
	for _, job := range s.jobs {
		s.wg.Go(func() {
			if job.interval <= 0 {
				s.execute(ctx, job)
				return
			}
			s.loop(ctx, job)
		})
	}
}

// Stop 取消所有作业并等待退出，ctx 到期后不再等待
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	wg, cancel := s.wg, s.cancel
	s.wg, s.cancel = nil, nil
	s.mu.Unlock()
	if wg == nil {
		return
	}

	s.tl.Warn("Stopping scheduler...")
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := wg.WaitAndRecover(); r != nil {
			s.tl.Error("Job panicked", zap.String("panic", r.String()))
		}
	}()

	select {
	case <-done:
		s.tl.Info("All jobs stopped successfully")
	case <-ctx.Done():
		s.tl.Warn("Context deadline exceeded while waiting for jobs to stop")
	}
}

func (s *Scheduler) loop(ctx context.Context, job *ScheduledJob) {
	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	for {
		s.execute(ctx, job)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.tl.Info("Job stopped", zap.String("job", job.name), zap.Int("runs", job.runs), zap.Int("failures", job.failures))
			return
		}
	}
}

// execute 执行一次作业；panic 转换为错误，不影响其他作业
func (s *Scheduler) execute(ctx context.Context, job *ScheduledJob) {
	if ctx.Err() != nil {
		return
	}

	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if job.interval > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, job.interval/2)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.fn(jobCtx)
	}()

	job.runs++
	if err != nil {
		job.failures++
		s.tl.Error("Job execution failed",
			zap.String("job", job.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	s.tl.Debug("Job execution completed", zap.String("job", job.name), zap.Duration("duration", time.Since(start)))
}
