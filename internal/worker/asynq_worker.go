package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/provider"
	"github.com/tiffin-next/internal/queue"
	"github.com/tiffin-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCheckoutHandoff, c.handleCheckoutHandoff)
}

func (c *Consumer) handleCheckoutHandoff(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_checkout_handoff_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCheckoutHandoffPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_checkout_handoff_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if c.Container == nil || c.CheckoutService == nil {
		logger.Warnw("worker_checkout_handoff_skip_service_nil", "handoff_no", payload.HandoffNo)
		return nil
	}
	return handoffOutcome(payload.HandoffNo, c.CheckoutService.Deliver(ctx, payload.HandoffNo))
}

// handoffOutcome 将投递结果转换为任务结果：未找到直接跳过，未配置不再重试，其余交给队列重试
func handoffOutcome(handoffNo string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrHandoffNotFound):
		logger.Debugw("worker_checkout_handoff_skip_not_found", "handoff_no", handoffNo)
		return nil
	case errors.Is(err, service.ErrCheckoutNotConfigured):
		logger.Warnw("worker_checkout_handoff_not_configured", "handoff_no", handoffNo)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		logger.Warnw("worker_checkout_handoff_failed", "handoff_no", handoffNo, "error", err)
		return err
	}
}
