package app

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/logger"

	"go.uber.org/zap"
)

// Mode 启动模式
type Mode string

const (
	ModeAll    Mode = "all"
	ModeAPI    Mode = "api"
	ModeWorker Mode = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

// ParseMode 解析命令行传入的启动模式，空值视为 all
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, api or worker)", raw)
	}
}

// servesAPI HTTP 接口、快照写入器与购物车维护随 API 一起运行
func (m Mode) servesAPI() bool {
	return m == ModeAll || m == ModeAPI
}

// consumesQueue 是否消费结账交接队列
func (m Mode) consumesQueue() bool {
	return m == ModeAll || m == ModeWorker
}

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            Mode
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.S()
	}
	if len(o.Signals) == 0 {
		o.Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
	if o.Mode == "" {
		o.Mode = ModeAll
	}
	return o
}
