package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	applog "github.com/tiffin-next/internal/logger"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 全局数据库连接
var DB *gorm.DB

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverMySQL    = "mysql"

	slowQueryThreshold = 200 * time.Millisecond
	dbPingTimeout      = 5 * time.Second
)

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// normalizeDriver 统一驱动别名，空值为 sqlite
func normalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return driverSQLite, nil
	case "postgres", "postgresql", "pg":
		return driverPostgres, nil
	case "mysql", "mariadb":
		return driverMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// OpenDialector 按驱动名创建 gorm 方言
func OpenDialector(driver, dsn string) (gorm.Dialector, error) {
	name, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	switch name {
	case driverPostgres:
		return postgres.Open(dsn), nil
	case driverMySQL:
		return mysql.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// InitDB 打开连接、校验连通性并设置连接池
func InitDB(driver, dsn string, pool DBPoolConfig) error {
	name, err := normalizeDriver(driver)
	if err != nil {
		return err
	}
	dialector, err := OpenDialector(name, dsn)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", name, err)
	}
	// SQLite 单写者，未显式配置时串行化连接避免 database is locked
	if name == driverSQLite && pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 1
	}
	applyDBPool(sqlDB, pool)
	DB = db
	applog.Infow("db_connected", "driver", name, "max_open_conns", pool.MaxOpenConns)
	return nil
}

// newGormLogger 将 gorm 的慢查询与错误日志桥接到 zap
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(applog.StdLogger(), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func applyDBPool(sqlDB *sql.DB, pool DBPoolConfig) {
	if sqlDB == nil {
		return
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// AutoMigrate 自动迁移购物车相关表
func AutoMigrate() error {
	return MigrateTables(DB)
}

// MigrateTables 在指定连接上迁移购物车快照与结账交接表
func MigrateTables(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.AutoMigrate(
		&CartSnapshot{},
		&CheckoutHandoff{},
	)
}
