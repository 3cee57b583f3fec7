package cli

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/database"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/jwt"
	applogger "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/logger"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/redis"
)

// TokenRevoker Token 吊销存储（pkg/redis.Client 实现）
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Runtime 单次命令执行所需的依赖
type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Tokens  *jwt.Manager
	Service *service.Service // withStore=false 时为 nil
	Revoker TokenRevoker     // Redis 未启用时为 nil

	closers []func() error
}

// AddCloser 登记需要在命令结束时释放的资源
func (r *Runtime) AddCloser(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close 按登记的逆序释放资源
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// RuntimeFactory 构造 Runtime；withStore 为 false 时不连接数据库
type RuntimeFactory func(opts *RootOptions, withStore bool) (*Runtime, error)

// DefaultRuntime 读取 .env 与配置文件，按需连接 PostgreSQL 与 Redis
func DefaultRuntime(opts *RootOptions, withStore bool) (*Runtime, error) {
	_ = godotenv.Load() // .env 可选

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "加载配置失败", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log, "rosterctl")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "初始化日志失败", err)
	}

	rt := &Runtime{Config: cfg, Logger: logger, Tokens: jwt.NewManager(&cfg.Auth)}
	rt.AddCloser(func() error {
		_ = logger.Sync()
		return nil
	})

	// Redis 可选：失败时降级，事件不发布，Token 吊销不可用
	var publisher service.EventPublisher
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，事件发布与 Token 吊销不可用", zap.Error(err))
		} else {
			publisher = rdb
			rt.Revoker = rdb
			rt.AddCloser(rdb.Close)
		}
	}

	if !withStore {
		return rt, nil
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		_ = rt.Close()
		return nil, WrapExitError(ExitCommandError, "数据库连接失败", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = rt.Close()
		return nil, WrapExitError(ExitCommandError, "获取底层 sql.DB 失败", err)
	}
	rt.AddCloser(sqlDB.Close)
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = rt.Close()
		return nil, WrapExitError(ExitCommandError, "数据库迁移失败", err)
	}

	rt.Service = service.NewService(cfg, repository.NewRepository(db), publisher, service.SystemClock, logger)
	return rt, nil
}

// withRuntime 构造运行时并在 fn 返回后释放
func withRuntime(opts *RootOptions, factory RuntimeFactory, withStore bool, fn func(rt *Runtime) error) error {
	rt, err := factory(opts, withStore)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return WrapExitError(ExitCommandError, "初始化运行时失败", err)
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}
