package db

import (
	"fmt"
	"time"

	conf "github.com/iceymoss/newsfeed/pkg/config"
	zLog "github.com/iceymoss/newsfeed/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open 按配置打开 mysql 或 postgres 连接
// TranslateError 打开后唯一键冲突会被翻译成 gorm.ErrDuplicatedKey，入库去重依赖这一点
func Open(cfg conf.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case conf.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case conf.DriverMySQL, "":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	slow := cfg.SlowThreshold
	if slow == 0 {
		slow = 500 * time.Millisecond
	}

	dbConn, err := gorm.Open(dialector, &gorm.Config{
		Logger: &CustomSqlLogger{
			Logger: zLog.Named("gorm"),
			Config: gormLogger.Config{
				LogLevel:                  gormLevel(cfg.LogLevel),
				Colorful:                  false,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             slow,
			},
		},
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	pool, err := dbConn.DB()
	if err != nil {
		return nil, err
	}
	maxOpen, maxIdle := cfg.MaxOpen, cfg.MaxIdle
	if maxOpen <= 0 {
		maxOpen = 30
	}
	if maxIdle <= 0 {
		maxIdle = 15
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxIdle)

	if cfg.LogLevel == "debug" {
		return dbConn.Debug(), nil
	}
	return dbConn, nil
}

func gormLevel(level string) gormLogger.LogLevel {
	switch level {
	case "debug", "info":
		return gormLogger.Info
	case "warning", "warn":
		return gormLogger.Warn
	case "error", "fatal", "panic", "dpanic":
		return gormLogger.Error
	case "silent":
		return gormLogger.Silent
	default:
		return gormLogger.Warn
	}
}
