package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/api/handler"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/api/middleware"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/api/router"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/scheduler"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/database"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/jwt"
	applogger "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/logger"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/redis"
)

func main() {
	// 0. 本地开发时从 .env 注入 ROSTER_* 环境变量（文件不存在时忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ROSTER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Strings("commitment_activities", cfg.Swap.CommitmentActivities),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级运行，事件不发布、Token 吊销不检查）
	var (
		rdb       *redis.Client
		publisher service.EventPublisher
		revoked   middleware.RevocationChecker
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，事件发布与 Token 吊销将不可用", zap.Error(err))
			rdb = nil
		} else {
			publisher = rdb
			revoked = rdb
		}
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, publisher, service.SystemClock, logger)
	h := handler.NewHandler(svc)

	// 7. 定时冲突扫描
	sched := scheduler.New(logger)
	if err := sched.Register(scheduler.NewConflictScanJob(&cfg.Conflict, svc.Conflict, nil, logger)); err != nil {
		logger.Fatal("注册定时任务失败", zap.Error(err))
	}
	sched.Start()

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, revoked, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待正在运行的扫描结束
	sched.Stop(ctx)

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
