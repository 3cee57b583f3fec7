package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/api/handler"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/api/middleware"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// revoked 为 nil 时不做 Token 吊销检查（未启用 Redis）
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, revoked middleware.RevocationChecker, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	coordinator := middleware.RoleAuth(jwt.RoleCoordinator)
	feed := middleware.RoleAuth(jwt.RoleFeed, jwt.RoleCoordinator)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, revoked))
	{
		// 换班模块
		swaps := v1.Group("/swaps")
		{
			swaps.POST("", h.Swap.CreateSwap)
			swaps.GET("", h.Swap.ListSwaps)
			swaps.GET("/export", coordinator, h.Export.ExportSwaps)
			swaps.GET("/:id", h.Swap.GetSwap)
			swaps.POST("/:id/validate", h.Swap.ValidateSwap)
			swaps.GET("/:id/plan", h.Swap.GetPlan)
			swaps.POST("/:id/execute", coordinator, h.Swap.ExecuteSwap)
			swaps.POST("/:id/rollback", coordinator, h.Swap.RollbackSwap)
			swaps.POST("/:id/approvals", h.Swap.RespondApproval) // 审批人即本人（Service 层校验）
		}

		// 冲突检测与告警
		v1.POST("/conflicts/detect", coordinator, h.Conflict.Detect)
		alerts := v1.Group("/conflict-alerts")
		{
			alerts.GET("", h.Conflict.ListAlerts)
			alerts.POST("/:id/acknowledge", h.Conflict.Acknowledge)
			alerts.POST("/:id/resolve", coordinator, h.Conflict.Resolve)
			alerts.POST("/:id/ignore", coordinator, h.Conflict.Ignore)
		}

		// 时段
		slots := v1.Group("/slots")
		{
			slots.GET("", h.Slot.ListSlots)
			slots.PUT("/override", coordinator, h.Slot.OverrideSlot)
			slots.POST("/ingest", feed, h.Slot.IngestBatch)
		}

		// 缺勤日历
		v1.POST("/absences/import", coordinator, h.Absence.ImportICS)
	}

	return r
}
