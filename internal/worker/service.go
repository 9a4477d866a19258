package worker

import (
	"context"
	"errors"

	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 结账交接投递 worker
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建 worker 服务，队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S()
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(reportTaskError)

	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务结束后关闭
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

func reportTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	taskType := ""
	if task != nil {
		taskType = task.Type()
	}
	log := logger.SW("task", taskType, "retried", retried, "max_retry", maxRetry, "error", err)
	if retried >= maxRetry {
		log.Errorw("worker_task_exhausted")
		return
	}
	log.Warnw("worker_task_failed")
}
