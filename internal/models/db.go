package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 全局连接，仓储层与测试通过替换它切换数据源
var DB *gorm.DB

// sqlWriter 把 gorm 的日志转到 zap
type sqlWriter struct{}

func (sqlWriter) Printf(format string, args ...interface{}) {
	logger.Component("gorm").Infof(format, args...)
}

// InitDB 按驱动打开连接并设置连接池；debug 模式记录全部 SQL，否则只记录慢查询与错误
func InitDB(cfg config.DatabaseConfig, debug bool) error {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(sqlWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pool := cfg.Pool
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
	DB = db
	return nil
}

// AutoMigrate 迁移全部业务表；授权策略表由 authz 服务自行维护
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.AutoMigrate(
		&User{}, &UserAddress{}, &Operator{},
		&Category{}, &Product{}, &ProductSKU{}, &ProductProperty{},
		&CrowdfundingProduct{}, &SeckillProduct{},
		&Coupon{},
		&Order{}, &OrderItem{}, &SeckillParticipation{},
		&Installment{}, &InstallmentItem{},
		&NotificationRecord{},
	)
}
