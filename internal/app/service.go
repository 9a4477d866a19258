package app

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service 可被 Runner 托管的长期运行服务
type Service interface {
	Name() string
	// Start 阻塞运行，ctx 结束或出错时返回
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 并发启动服务，任一服务退出或收到信号后按注册顺序停止
type Runner struct {
	services []Service
	cleanups []func()
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// OnStop 注册所有服务停止后执行的清理函数，按注册顺序执行
func (r *Runner) OnStop(fn func()) {
	if r == nil || fn == nil {
		return
	}
	r.cleanups = append(r.cleanups, fn)
}

// RunWithOptions 监听系统信号并运行服务
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = opts.withDefaults()
	ctx, stop := signal.NotifyContext(context.Background(), opts.Signals...)
	defer stop()
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

type serviceExit struct {
	name string
	err  error
}

// Run 启动全部服务并阻塞至停止完成；正常停机返回 nil
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for _, svc := range r.services {
		if svc == nil {
			return errors.New("service is nil")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan serviceExit, len(r.services))
	var wg sync.WaitGroup
	for _, svc := range r.services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			log.Infow("service_start", "service", svc.Name())
			err := svc.Start(runCtx)
			log.Infow("service_exit", "service", svc.Name(), "error", err)
			exits <- serviceExit{name: svc.Name(), err: err}
		}(svc)
	}

	var runErr error
	select {
	case <-runCtx.Done():
		log.Infow("runner_shutdown_signal", "cause", context.Cause(runCtx))
	case exit := <-exits:
		runErr = exit.err
		log.Infow("runner_shutdown_service_exit", "service", exit.name, "error", exit.err)
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = defaultShutdownTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	r.stopAll(stopCtx, log)
	waitGroupWithContext(stopCtx, &wg, log)

	for _, fn := range r.cleanups {
		fn()
	}
	return runErr
}

func (r *Runner) stopAll(ctx context.Context, log *zap.SugaredLogger) {
	for _, svc := range r.services {
		begin := time.Now()
		if err := svc.Stop(ctx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			continue
		}
		log.Infow("service_stopped", "service", svc.Name(), "elapsed_ms", time.Since(begin).Milliseconds())
	}
}

func waitGroupWithContext(ctx context.Context, wg *sync.WaitGroup, log *zap.SugaredLogger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warnw("runner_stop_timeout", "error", ctx.Err())
	}
}
