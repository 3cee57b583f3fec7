package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job 定时任务
type Job interface {
	Name() string
	Spec() string
	Run(ctx context.Context) error
}

// Scheduler 基于 robfig/cron 的定时任务调度器
// 同一任务上一轮未结束时跳过本轮
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New 创建调度器
func New(logger *zap.Logger) *Scheduler {
	cl := &cronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
	}
}

// Register 注册任务；spec 为标准 5 段 cron 表达式
func (s *Scheduler) Register(job Job) error {
	_, err := s.cron.AddFunc(job.Spec(), func() {
		if err := job.Run(context.Background()); err != nil {
			s.logger.Error("定时任务执行失败", zap.String("job", job.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("注册定时任务 %s 失败: %w", job.Name(), err)
	}
	s.logger.Info("定时任务已注册", zap.String("job", job.Name()), zap.String("spec", job.Spec()))
	return nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束，ctx 到期则不再等待
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

// cronLogger 将 cron 内部日志转接到 zap
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
