package mysql

import (
	"fmt"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewClient 创建GORM MySQL客户端并迁移给定模型
// 返回的cleanup用于关闭连接
func NewClient(dsn string, log config.Logger, models ...interface{}) (*gorm.DB, func(), error) {
	if dsn == "" {
		return nil, nil, fmt.Errorf("数据库DSN不能为空")
	}

	gormLogger := logger.New(
		&gormLogAdapter{logger: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		log.Error("连接MySQL失败", zap.Error(err))
		return nil, nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("获取sql.DB失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("MySQL健康检查失败: %w", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("迁移数据表失败: %w", err)
		}
	}

	log.Info("MySQL连接成功")

	cleanup := func() {
		log.Info("关闭MySQL连接")
		if err := sqlDB.Close(); err != nil {
			log.Error("关闭MySQL连接失败", zap.Error(err))
		}
	}

	return db, cleanup, nil
}

// gormLogAdapter 将GORM日志写入Logger
type gormLogAdapter struct {
	logger config.Logger
}

// Printf 实现gorm/logger.Writer接口
func (g *gormLogAdapter) Printf(format string, v ...interface{}) {
	g.logger.Warn(fmt.Sprintf(format, v...), zap.String("component", "gorm"))
}
