package app

import (
	"errors"
	"net"

	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/provider"
	"github.com/tiffin-next/internal/router"
	"github.com/tiffin-next/internal/worker"
)

// BuildRunner 按启动模式装配服务
func BuildRunner(cfg *config.Config, mode Mode) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)
	services := make([]Service, 0, 4)

	if mode.servesAPI() {
		// 停止顺序即注册顺序：先停 HTTP 不再接收变更，再由写入器落盘剩余快照
		services = append(services,
			NewHTTPService(listenAddr(cfg), router.SetupRouter(cfg, container)),
			container.SnapshotWriter,
			worker.NewMaintenanceService(
				container.CartPersistence,
				container.CartSessionService,
				cfg.Cart.PurgeInterval(),
				cfg.Cart.IdleEvict(),
			),
		)
	}

	if mode.consumesQueue() {
		if !cfg.Queue.Enabled {
			logger.Warnw("app_worker_skip_queue_disabled", "mode", mode)
		} else {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, workerService)
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and queue config)")
	}

	runner := NewRunner(services...)
	runner.OnStop(container.Close)
	return runner, nil
}

func listenAddr(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = opts.withDefaults()
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start",
		"addr", listenAddr(opts.Config),
		"mode", opts.Mode,
		"snapshot_storage", opts.Config.Cart.NormalizedStorage(),
		"queue_enabled", opts.Config.Queue.Enabled,
	)
	return RunWithOptions(runner, opts)
}
