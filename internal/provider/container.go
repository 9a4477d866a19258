package provider

import (
	"github.com/tiffin-next/internal/cache"
	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/models"
	"github.com/tiffin-next/internal/queue"
	"github.com/tiffin-next/internal/repository"
	"github.com/tiffin-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	CartSnapshotRepo    repository.CartSnapshotRepository
	CheckoutHandoffRepo repository.CheckoutHandoffRepository

	// Services
	CartPersistence    *service.SnapshotPersistence
	SnapshotWriter     *service.AsyncSnapshotWriter
	CartSessionService *service.CartSessionService
	CheckoutClient     *service.HTTPCheckoutClient
	CheckoutService    *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CartSnapshotRepo = repository.NewCartSnapshotRepository(db)
	c.CheckoutHandoffRepo = repository.NewCheckoutHandoffRepository(db)
}

func (c *Container) initServices() {
	c.CartPersistence = service.NewSnapshotPersistence(c.CartSnapshotRepo, c.Config.Cart)
	c.SnapshotWriter = service.NewAsyncSnapshotWriter(c.CartPersistence)
	c.CartSessionService = service.NewCartSessionService(c.CartPersistence, c.SnapshotWriter)

	c.CheckoutClient = service.NewHTTPCheckoutClient(c.Config.Checkout)
	if !c.CheckoutClient.Configured() {
		logger.Warnw("provider_checkout_endpoint_missing")
	}
	c.CheckoutService = service.NewCheckoutService(
		c.CartSessionService,
		c.CheckoutHandoffRepo,
		c.QueueClient,
		c.CheckoutClient,
		c.Config.Checkout.LockTTL(),
	)
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
