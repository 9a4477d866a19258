package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/tiffin-next/internal/app"
	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func main() {
	modeFlag := flag.String("mode", string(app.ModeAll), "启动模式: all (默认), api, worker")
	skipMigrate := flag.Bool("skip-migrate", false, "跳过数据库自动迁移")
	flag.Parse()

	mode, err := app.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	printStartupBanner(mode)
	if err := run(mode, !*skipMigrate); err != nil {
		logger.StdLogger().Fatalf("服务运行失败: %v", err)
	}
}

func run(mode app.Mode, migrate bool) error {
	// 本地开发时从 .env 预加载环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "警告: 读取 .env 失败: %v\n", err)
	}

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer func() { _ = logger.Z().Sync() }()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	pool := cfg.Database.Pool
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           pool.MaxOpenConns,
		MaxIdleConns:           pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if migrate {
		if err := models.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate cart tables: %w", err)
		}
	} else {
		logger.Infow("db_migrate_skipped")
	}

	return app.Run(app.Options{
		Config: cfg,
		Logger: logger.S(),
		Mode:   mode,
	})
}

func printStartupBanner(mode app.Mode) {
	fmt.Println(ansiCyan + "  ▀█▀ █ █▀▀ █▀▀ █ █▄ █   █▄ █ █▀▀ ▀▄▀ ▀█▀" + ansiReset)
	fmt.Println(ansiCyan + "   █  █ █▀  █▀  █ █ ▀█   █ ▀█ ██▄ █ █  █ " + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "cart · snapshot · checkout handoff" + ansiReset + ansiDim + "  mode=" + string(mode) + ansiReset)
}
