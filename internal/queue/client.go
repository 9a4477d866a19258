package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 结账交接等高优先级任务队列
	CriticalQueue = constants.QueueCritical

	defaultConcurrency = 10
	// 交接任务完成后保留一段时间，窗口内重复入队按 TaskID 去重
	handoffRetention = 24 * time.Hour
	handoffTimeout   = 30 * time.Second
)

// Client asynq 客户端封装，nil 或未启用时所有操作为空操作
type Client struct {
	client   *asynq.Client
	maxRetry int
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{
		client:   asynq.NewClient(redisOpt(cfg)),
		maxRetry: cfg.MaxRetry,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueCheckoutHandoff 推送结账交接投递任务
// 交接单号即任务 ID，同一交接单重复推送视为成功
func (c *Client) EnqueueCheckoutHandoff(ctx context.Context, payload CheckoutHandoffPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCheckoutHandoffTask(payload)
	if err != nil {
		return err
	}
	options := append(handoffTaskOptions(payload.HandoffNo, c.maxRetry), opts...)
	if _, err := c.client.EnqueueContext(ctx, task, options...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func handoffTaskOptions(handoffNo string, maxRetry int) []asynq.Option {
	options := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.TaskID(HandoffTaskID(handoffNo)),
		asynq.Retention(handoffRetention),
		asynq.Timeout(handoffTimeout),
	}
	if maxRetry > 0 {
		options = append(options, asynq.MaxRetry(maxRetry))
	}
	return options
}

// HandoffTaskID 交接任务的去重 ID
func HandoffTaskID(handoffNo string) string {
	return TaskCheckoutHandoff + ":" + strings.TrimSpace(handoffNo)
}

// BuildServerConfig 生成 worker 侧的 Redis 连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{CriticalQueue: 6, DefaultQueue: 3},
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		cfg = &config.QueueConfig{}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
